package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blendin/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.CodeTTL = time.Hour
	cfg.Owner = "test-instance"

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Code reservation tests

func (s *StorageSuite) TestReserveCode() {
	ok, err := s.storage.ReserveCode(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.True(ok)

	s.True(s.mini.Exists("blendin:code:ABCD"))
	value, err := s.mini.Get("blendin:code:ABCD")
	s.Require().NoError(err)
	s.Equal("test-instance", value)
}

func (s *StorageSuite) TestReserveCodeTwiceFails() {
	_, _ = s.storage.ReserveCode(s.ctx, "ABCD")

	ok, err := s.storage.ReserveCode(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestReservationSharedAcrossClients() {
	other := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), DefaultConfig())
	defer other.Close()

	ok, err := other.ReserveCode(s.ctx, "WXYZ")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.storage.ReserveCode(s.ctx, "WXYZ")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestReservationHasTTL() {
	_, _ = s.storage.ReserveCode(s.ctx, "ABCD")

	ttl := s.mini.TTL("blendin:code:ABCD")
	s.Equal(time.Hour, ttl)
}

func (s *StorageSuite) TestReservationExpires() {
	_, _ = s.storage.ReserveCode(s.ctx, "ABCD")

	s.mini.FastForward(2 * time.Hour)

	reserved, err := s.storage.CodeReserved(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.False(reserved)
}

func (s *StorageSuite) TestReleaseCode() {
	_, _ = s.storage.ReserveCode(s.ctx, "ABCD")

	err := s.storage.ReleaseCode(s.ctx, "ABCD")
	s.Require().NoError(err)

	reserved, err := s.storage.CodeReserved(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.False(reserved)
}

// Topic tests

func (s *StorageSuite) TestGetTopicsNotLoaded() {
	_, err := s.storage.GetTopics(s.ctx)
	s.ErrorIs(err, model.ErrTopicsNotLoaded)
}

func (s *StorageSuite) TestSaveAndGetTopics() {
	err := s.storage.SaveTopics(s.ctx, []string{"Pizza", "Beach", "Library"})
	s.Require().NoError(err)

	topics, err := s.storage.GetTopics(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Beach", "Library", "Pizza"}, topics)
}

func (s *StorageSuite) TestSaveTopicsReplaces() {
	_ = s.storage.SaveTopics(s.ctx, []string{"Pizza", "Beach"})
	_ = s.storage.SaveTopics(s.ctx, []string{"Zoo"})

	topics, err := s.storage.GetTopics(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Zoo"}, topics)
}

func (s *StorageSuite) TestConnectionError() {
	s.mini.Close()

	_, err := s.storage.ReserveCode(s.ctx, "ABCD")
	s.Error(err)
}
