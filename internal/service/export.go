package service

import (
	"context"

	"github.com/communitymapper/community-mapper/internal/export"
)

// Export renders the caller's people, with their tag names, as an XLSX
// workbook.
func (s *PersonService) Export(ctx context.Context, userID string) ([]byte, error) {
	people, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.TagNamesByPerson(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "tags")
	}
	data, err := export.People(people, tags)
	if err != nil {
		return nil, err
	}
	s.logger.Info("people exported", "user_id", userID, "count", len(people))
	return data, nil
}
