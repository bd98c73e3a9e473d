package x11

import (
	"context"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/dpms"
)

const dpmsModeOn = 0

func initDPMS(conn *xgb.Conn) bool {
	if err := dpms.Init(conn); err != nil {
		return false
	}
	reply, err := dpms.Capable(conn).Reply()
	return err == nil && reply.Capable
}

// Interactive reports whether the monitor is powered on according to DPMS.
// With DPMS disabled the screen never blanks, so it counts as on.
func (s *Source) Interactive(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !s.hasDPMS {
		return false, fmt.Errorf("DPMS extension not available")
	}

	info, err := dpms.Info(s.conn).Reply()
	if err != nil {
		return false, fmt.Errorf("failed to query DPMS state: %w", err)
	}
	return screenOn(info.State, info.PowerLevel), nil
}

func screenOn(dpmsEnabled bool, powerLevel uint16) bool {
	return !dpmsEnabled || powerLevel == dpmsModeOn
}
