package repository

import "math/rand/v2"

// Treap-based sorted set.
//
// Ordering: score DESC, then member DESC. This is the order Redis uses for
// ZREVRANGE/ZREVRANK, so the in-memory store reports the same native ranks.
// "less" means ranks earlier; in-order traversal yields best to worst.

type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID > bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// rankOf returns the 0-based position of (score, id); the pair must exist.
func rankOf(n *node, id string, score float64) int {
	rank := 0
	for n != nil {
		switch {
		case n.id == id && n.score == score:
			return rank + nsize(n.left)
		case less(score, id, n.score, n.id):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

// kth returns the node at 0-based position k.
func kth(n *node, k int) *node {
	for n != nil {
		ls := nsize(n.left)
		switch {
		case k < ls:
			n = n.left
		case k == ls:
			return n
		default:
			k -= ls + 1
			n = n.right
		}
	}
	return nil
}

// collectRange appends ids at positions [from, to] in rank order. offset is
// the position of the subtree's first element.
func collectRange(n *node, from, to, offset int, out *[]string) {
	if n == nil || offset > to || offset+n.size-1 < from {
		return
	}
	collectRange(n.left, from, to, offset, out)
	pos := offset + nsize(n.left)
	if pos >= from && pos <= to {
		*out = append(*out, n.id)
	}
	collectRange(n.right, from, to, pos+1, out)
}

// sortedSet pairs the treap with a member -> score index.
type sortedSet struct {
	root   *node
	scores map[string]float64
	rnd    *rand.Rand
}

func newSortedSet(rnd *rand.Rand) *sortedSet {
	return &sortedSet{scores: make(map[string]float64), rnd: rnd}
}

func (z *sortedSet) len() int { return len(z.scores) }

func (z *sortedSet) score(id string) (float64, bool) {
	s, ok := z.scores[id]
	return s, ok
}

// add inserts id or moves it to score.
func (z *sortedSet) add(id string, score float64) {
	if old, ok := z.scores[id]; ok {
		z.root = deleteNode(z.root, id, old)
	}
	z.scores[id] = score
	z.root = insert(z.root, id, score, z.rnd.Uint64())
}

func (z *sortedSet) remove(id string) bool {
	old, ok := z.scores[id]
	if !ok {
		return false
	}
	z.root = deleteNode(z.root, id, old)
	delete(z.scores, id)
	return true
}

// popLowest removes and returns the member ranked last.
func (z *sortedSet) popLowest() (string, bool) {
	last := kth(z.root, z.len()-1)
	if last == nil {
		return "", false
	}
	id := last.id
	z.remove(id)
	return id, true
}

func (z *sortedSet) rank(id string) (int, bool) {
	s, ok := z.scores[id]
	if !ok {
		return 0, false
	}
	return rankOf(z.root, id, s), true
}

func (z *sortedSet) rangeIDs(from, to int) []string {
	if to >= z.len() {
		to = z.len() - 1
	}
	if from > to {
		return nil
	}
	out := make([]string, 0, to-from+1)
	collectRange(z.root, from, to, 0, &out)
	return out
}
