package ledger

import (
	"fmt"

	"github.com/kedgaks/golos/protocol"
)

// ApplyPost publishes a post. Publishing an existing post again is an edit and
// must keep its parent.
func (l *Ledger) ApplyPost(op protocol.Post) error {
	if !l.HasAccount(op.Author) {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, op.Author)
	}
	if existing, ok := l.FindPost(op.Author, op.Permlink); ok {
		if existing.ParentAuthor != op.ParentAuthor || existing.ParentPermlink != op.ParentPermlink {
			return fmt.Errorf("%w: %s/%s", ErrParentMismatch, op.Author, op.Permlink)
		}
		return nil
	}
	if op.ParentAuthor != "" {
		if _, ok := l.FindPost(op.ParentAuthor, op.ParentPermlink); !ok {
			return fmt.Errorf("%w: parent %s/%s", ErrUnknownPost, op.ParentAuthor, op.ParentPermlink)
		}
	}
	_, err := l.posts.Create(func(p *Post) {
		p.Author = op.Author
		p.Permlink = op.Permlink
		p.ParentAuthor = op.ParentAuthor
		p.ParentPermlink = op.ParentPermlink
		p.Created = l.now()
	})
	return err
}

// ApplyVote sets the voter's weight on a post and recomputes the post's net
// rshares as the sum of all weights. A zero weight removes the vote.
func (l *Ledger) ApplyVote(op protocol.Vote) error {
	if !l.HasAccount(op.Voter) {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, op.Voter)
	}
	post, ok := l.FindPost(op.Author, op.Permlink)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownPost, op.Author, op.Permlink)
	}

	delta := op.Weight
	if v, ok := l.votesByPost.Find(PostVote{Post: post.ID, Voter: op.Voter}); ok {
		delta -= v.Weight
		if op.Weight == 0 {
			if err := l.votes.Remove(v.ID); err != nil {
				return err
			}
		} else if _, err := l.votes.Modify(v.ID, func(v *PostVote) { v.Weight = op.Weight }); err != nil {
			return err
		}
	} else if op.Weight != 0 {
		_, err := l.votes.Create(func(v *PostVote) {
			v.Post = post.ID
			v.Voter = op.Voter
			v.Weight = op.Weight
		})
		if err != nil {
			return err
		}
	}
	if delta == 0 {
		return nil
	}

	post, err := l.posts.Modify(post.ID, func(p *Post) {
		p.NetRshares += delta
	})
	if err != nil {
		return err
	}
	for _, hook := range l.rsharesHooks {
		if err := hook(post); err != nil {
			return err
		}
	}
	return nil
}
