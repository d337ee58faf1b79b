package search

// TimeManager turns the clock situation into a soft target and a hard
// ceiling for the current search, both in milliseconds. Best-move
// instability reported by the driver grows the soft target.
type TimeManager struct {
	optimumTime int
	maximumTime int
	unstableExtra int
}

const (
	moveHorizon       = 30 // assume this many moves still to play
	emergencyMoveTime = 20 // keep per-move slack for fast endings
	minThinkingTime   = 20
)

// Init computes the budgets from remaining time, increment and moves to
// go. startPly shifts the horizon: late in the game fewer moves remain.
func (tm *TimeManager) Init(limits Limits, startPly int) {
	tm.unstableExtra = 0

	mtg := limits.MovesToGo
	if mtg == 0 {
		mtg = moveHorizon - minInt(startPly/6, moveHorizon/2)
	}
	mtg = clampInt(mtg, 2, moveHorizon)

	myTime := maxInt(limits.Time-emergencyMoveTime*minInt(mtg, 10), 0)

	tm.optimumTime = minThinkingTime + myTime/mtg + limits.Increment*3/4
	tm.maximumTime = minThinkingTime + minInt(myTime/4+limits.Increment, myTime)

	if tm.optimumTime > tm.maximumTime {
		tm.optimumTime = tm.maximumTime
	}
	if limits.Ponder {
		// A ponder hit converts thinking time already spent into profit;
		// plan for a longer think.
		tm.optimumTime += tm.optimumTime / 4
		tm.optimumTime = minInt(tm.optimumTime, tm.maximumTime)
	}
}

// PVInstability extends the soft budget when the best move keeps
// changing: the more changes this iteration and the previous one saw,
// the more extra time is granted.
func (tm *TimeManager) PVInstability(curChanges, prevChanges int) {
	tm.unstableExtra = (curChanges*2 + prevChanges) * tm.optimumTime / 8
	if tm.unstableExtra > tm.optimumTime {
		tm.unstableExtra = tm.optimumTime
	}
}

// AvailableTime is the soft target including any instability extension.
func (tm *TimeManager) AvailableTime() int { return tm.optimumTime + tm.unstableExtra }

// MaximumTime is the hard ceiling.
func (tm *TimeManager) MaximumTime() int { return tm.maximumTime }
