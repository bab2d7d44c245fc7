package user

import (
	"time"

	"github.com/sutdhousing/portal/core"
)

// MakeResetToken returns a password reset token for usr, as it would be emailed.
// Used by tests that exercise the password reset flow end to end.
func MakeResetToken(conf *core.Config, usr User) (string, error) {
	return newTokenGenerator(conf).makeToken(usr)
}

// MockNow makes token generation believe the current time is now().
// The returned func restores the real clock.
func MockNow(now func() time.Time) (reset func()) {
	nowFunc = now
	return func() { nowFunc = time.Now }
}
