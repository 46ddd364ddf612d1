package models

// location is where a node sits in the forest: the sibling slice that holds
// it and its index within that slice.
type location struct {
	siblings *[]*Comment
	index    int
	node     *Comment
}

// locate searches the forest depth-first: each top-level comment, then its
// replies, then the next sibling.
func locate(forest *[]*Comment, id int64) (location, bool) {
	for i, n := range *forest {
		if n.ID == id {
			return location{siblings: forest, index: i, node: n}, true
		}
		if loc, ok := locate(&n.Replies, id); ok {
			return loc, true
		}
	}
	return location{}, false
}

// FindComment returns the node with the given id anywhere in the forest.
func FindComment(forest []*Comment, id int64) (*Comment, bool) {
	loc, ok := locate(&forest, id)
	if !ok {
		return nil, false
	}
	return loc.node, true
}

// remove detaches the located node, and with it its whole subtree. The
// sibling slice is rebuilt so earlier copies of it are left intact.
func (l location) remove() {
	old := *l.siblings
	kept := make([]*Comment, 0, len(old)-1)
	kept = append(kept, old[:l.index]...)
	kept = append(kept, old[l.index+1:]...)
	*l.siblings = kept
}

// appendReply adds child to the end of the node's replies.
func (c *Comment) appendReply(child *Comment) {
	c.Replies = append(c.Replies, child)
}

// toggleLike flips userID's membership in the like-set and reports whether
// the user likes the node afterwards. Likes always tracks len(LikedBy).
func (c *Comment) toggleLike(userID string) bool {
	for i, id := range c.LikedBy {
		if id == userID {
			kept := make([]string, 0, len(c.LikedBy)-1)
			kept = append(kept, c.LikedBy[:i]...)
			kept = append(kept, c.LikedBy[i+1:]...)
			c.LikedBy = kept
			c.Likes = len(c.LikedBy)
			return false
		}
	}
	c.LikedBy = append(c.LikedBy, userID)
	c.Likes = len(c.LikedBy)
	return true
}

// WalkComments calls fn for every node, parents before their replies.
// Returning false stops the walk.
func WalkComments(forest []*Comment, fn func(*Comment) bool) bool {
	for _, n := range forest {
		if !fn(n) {
			return false
		}
		if !WalkComments(n.Replies, fn) {
			return false
		}
	}
	return true
}

// CountComments returns the number of nodes in the forest at every depth.
func CountComments(forest []*Comment) int {
	count := 0
	WalkComments(forest, func(*Comment) bool {
		count++
		return true
	})
	return count
}
