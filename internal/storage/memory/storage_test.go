package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blendin/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Code reservation tests

func (s *StorageSuite) TestReserveCode() {
	ok, err := s.storage.ReserveCode(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.True(ok)

	reserved, err := s.storage.CodeReserved(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.True(reserved)
}

func (s *StorageSuite) TestReserveCodeTwiceFails() {
	_, _ = s.storage.ReserveCode(s.ctx, "ABCD")

	ok, err := s.storage.ReserveCode(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestReleaseCodeAllowsReuse() {
	_, _ = s.storage.ReserveCode(s.ctx, "ABCD")

	err := s.storage.ReleaseCode(s.ctx, "ABCD")
	s.Require().NoError(err)

	reserved, _ := s.storage.CodeReserved(s.ctx, "ABCD")
	s.False(reserved)

	ok, err := s.storage.ReserveCode(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *StorageSuite) TestReleaseUnknownCodeIsNoop() {
	err := s.storage.ReleaseCode(s.ctx, "ZZZZ")
	s.NoError(err)
}

// Topic tests

func (s *StorageSuite) TestGetTopicsNotLoaded() {
	_, err := s.storage.GetTopics(s.ctx)
	s.ErrorIs(err, model.ErrTopicsNotLoaded)
}

func (s *StorageSuite) TestSaveAndGetTopics() {
	topics := []string{"Pizza", "Beach", "Library"}

	err := s.storage.SaveTopics(s.ctx, topics)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetTopics(s.ctx)
	s.Require().NoError(err)
	s.Equal(topics, retrieved)
}

func (s *StorageSuite) TestGetTopicsReturnsCopy() {
	_ = s.storage.SaveTopics(s.ctx, []string{"Pizza"})

	retrieved, _ := s.storage.GetTopics(s.ctx)
	retrieved[0] = "changed"

	again, _ := s.storage.GetTopics(s.ctx)
	s.Equal("Pizza", again[0])
}

func (s *StorageSuite) TestSaveTopicsReplaces() {
	_ = s.storage.SaveTopics(s.ctx, []string{"Pizza", "Beach"})
	_ = s.storage.SaveTopics(s.ctx, []string{"Zoo"})

	retrieved, err := s.storage.GetTopics(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Zoo"}, retrieved)
}
