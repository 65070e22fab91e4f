//go:build integration

package snapshots

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/pkg/testutil/containers"
)

type MirrorSuite struct {
	suite.Suite
	mirror *Mirror
	day    time.Time
}

func TestMirrorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MirrorSuite))
}

func (s *MirrorSuite) SetupSuite() {
	s.mirror = NewMirror(containers.NewRedis(s.T()), nil)
	s.day = time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	s.mirror.now = func() time.Time { return s.day }
}

func (s *MirrorSuite) SetupTest() {
	s.Require().NoError(s.mirror.client.FlushAll(context.Background()).Err())
}

func (s *MirrorSuite) TestAppendNewestFirstAndBackup() {
	ctx := context.Background()
	s.Require().NoError(s.mirror.Append(ctx, snapshotReg("r1", s.day)))
	s.Require().NoError(s.mirror.Append(ctx, snapshotReg("r2", s.day.Add(time.Minute))))
	s.Require().NoError(s.mirror.Append(ctx, snapshotReg("r1", s.day)))

	cols, err := s.mirror.Collections(ctx)
	s.Require().NoError(err)
	s.Require().Len(cols, 2)
	s.Equal(SharedKey, cols[0].Name)
	s.Equal("registrations:backup:2025-11-03", cols[1].Name)
	s.Equal([]string{"r2", "r1"}, []string{cols[0].Records[0].ID, cols[0].Records[1].ID})
	s.Len(cols[1].Records, 2)
}

func (s *MirrorSuite) TestSharedListIsCapped() {
	ctx := context.Background()
	for i := 0; i < MaxShared+5; i++ {
		s.Require().NoError(s.mirror.Append(ctx, snapshotReg(fmt.Sprintf("r%04d", i), s.day)))
	}
	cols, err := s.mirror.Collections(ctx)
	s.Require().NoError(err)
	s.Len(cols[0].Records, MaxShared)
	s.Equal(fmt.Sprintf("r%04d", MaxShared+4), cols[0].Records[0].ID)
}

func (s *MirrorSuite) TestUpdateAndRemove() {
	ctx := context.Background()
	s.Require().NoError(s.mirror.Append(ctx, snapshotReg("r1", s.day)))
	s.Require().NoError(s.mirror.Append(ctx, snapshotReg("r2", s.day)))

	s.Require().NoError(s.mirror.UpdatePaymentStatus(ctx, "r1", models.PaymentStatusPaid))
	s.Require().NoError(s.mirror.Remove(ctx, "r2"))

	cols, err := s.mirror.Collections(ctx)
	s.Require().NoError(err)
	for _, c := range cols {
		for _, r := range c.Records {
			s.NotEqual("r2", r.ID, c.Name)
		}
	}
	s.Require().Len(cols[0].Records, 1)
	s.Equal(models.PaymentStatusPaid, cols[0].Records[0].PaymentStatus)
}

func (s *MirrorSuite) TestCorruptValueIsReportedAndReplaced() {
	ctx := context.Background()
	s.Require().NoError(s.mirror.client.Set(ctx, SharedKey, "{oops", 0).Err())

	cols, err := s.mirror.Collections(ctx)
	s.Require().NoError(err)
	s.Require().Len(cols, 1)
	s.Error(cols[0].Err)

	s.Require().NoError(s.mirror.Append(ctx, snapshotReg("r1", s.day)))
	cols, err = s.mirror.Collections(ctx)
	s.Require().NoError(err)
	s.NoError(cols[0].Err)
	s.Len(cols[0].Records, 1)
}

func (s *MirrorSuite) TestClear() {
	ctx := context.Background()
	s.Require().NoError(s.mirror.Append(ctx, snapshotReg("r1", s.day)))
	s.Require().NoError(s.mirror.Clear(ctx))
	cols, err := s.mirror.Collections(ctx)
	s.Require().NoError(err)
	s.Empty(cols)
}
