package models

// maxCommentID returns the largest node id in the forest, or 0 when empty.
func maxCommentID(forest []*Comment) int64 {
	var max int64
	WalkComments(forest, func(c *Comment) bool {
		if c.ID > max {
			max = c.ID
		}
		return true
	})
	return max
}

// allocateCommentID hands out the next id for a node of this post and
// advances the post's counter. Documents written before the counter existed
// are covered by also stepping past the largest id already in the forest.
// Ids are never reused: deleting a node does not move the counter back.
func (p *Post) allocateCommentID() int64 {
	next := p.CommentSeq
	if m := maxCommentID(p.Comments); m > next {
		next = m
	}
	next++
	p.CommentSeq = next
	return next
}
