package usecase

import "time"

// Test-only accessors for the external usecase_test package.

const AutoSuspensionDaysForTest = autoSuspensionDays

func (s *AntiFraudService) SetNowForTest(f func() time.Time) { s.now = f }

func (s *AntiFraudService) NowForTest() time.Time { return s.now() }

func (s *BackfillService) SetNowForTest(f func() time.Time) { s.now = f }

func (s *HistoryService) SetNowForTest(f func() time.Time) { s.now = f }

func (s *IdentityService) SetNowForTest(f func() time.Time) { s.now = f }

func (s *LeaderboardService) SetNowForTest(f func() time.Time) { s.now = f }

func (s *RatingService) SetNowForTest(f func() time.Time) { s.now = f }
