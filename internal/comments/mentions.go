package comments

import (
	"context"
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/crewdeck/internal/entity"
)

// mentionPattern captures @name tokens. Names are restricted to the
// characters users can actually register with, so punctuation trailing a
// mention ("thanks @alice!") is not swallowed.
var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9._-]+)`)

// resolveMentions returns the deduplicated union of user ids mentioned in
// body and the explicitly supplied ids. The body is NFC-normalized before
// matching so token boundaries do not depend on whether the input spells
// accents composed or decomposed; the tokens themselves are ASCII per
// mentionPattern. Each captured token is resolved against users by exact,
// case-sensitive name equality, first match winning; tokens that resolve
// to no user are silently dropped.
func (s *Service) resolveMentions(ctx context.Context, body string, explicit []string) ([]string, error) {
	var ids []string
	seen := map[string]bool{}

	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, m := range mentionPattern.FindAllStringSubmatch(norm.NFC.String(body), -1) {
		id, err := s.lookupUserByName(ctx, m[1])
		if err != nil {
			return nil, err
		}
		add(id)
	}
	for _, id := range explicit {
		add(id)
	}
	return ids, nil
}

// lookupUserByName returns the id of the first user whose name exactly
// equals token, or "" when no user matches.
func (s *Service) lookupUserByName(ctx context.Context, token string) (string, error) {
	docs, err := s.store.Find(ctx, entity.CollUsers, "name", token)
	if err != nil {
		return "", fmt.Errorf("resolve mention %q: %w", token, err)
	}
	if len(docs) == 0 {
		return "", nil
	}
	var user entity.User
	if err := entity.Decode(docs[0], &user); err != nil {
		return "", fmt.Errorf("resolve mention %q: %w", token, err)
	}
	return user.ID, nil
}
