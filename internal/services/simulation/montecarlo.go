package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"PitWall/internal/domain/models"
	"PitWall/internal/domain/service"
)

// Championship points by finishing position.
var pointsTable = map[int]float64{
	1: 25, 2: 18, 3: 15, 4: 12, 5: 10, 6: 8, 7: 6, 8: 4, 9: 2, 10: 1,
}

// DefaultTrials is the Monte Carlo sample size when the caller does not ask
// for one.
const DefaultTrials = 500

const (
	lapNoiseStd       = 0.2
	pitExecutionStd   = 0.5
	rejoinTrafficProb = 0.3
	rejoinMaxDelay    = 2.0
	rejoinTrafficLaps = 3
	scPitDiscount     = 0.6
)

// Simulator runs Monte Carlo race projections from immutable snapshots.
// Trials fan out across workers; each trial owns a private rng seeded from
// a base seed plus the trial index, so two runs with the same seed produce
// identical outcomes and candidate pit laps can be compared on common
// random draws.
type Simulator struct {
	workers       int
	timeout       time.Duration
	scProb        float64
	seed          int64
	seeded        bool
	defaultTrials int
}

var _ service.OutcomeSimulator = (*Simulator)(nil)

// Option configures a Simulator.
type Option func(*Simulator)

// WithWorkers caps the trial fan-out width.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout bounds a whole run. On expiry the completed subset is
// aggregated with lowered confidence.
func WithTimeout(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSafetyCarProbability overrides the chance of a safety car during the
// remaining laps.
func WithSafetyCarProbability(p float64) Option {
	return func(s *Simulator) {
		if p >= 0 && p <= 1 {
			s.scProb = p
		}
	}
}

// WithSeed fixes the base seed for reproducible runs.
func WithSeed(seed int64) Option {
	return func(s *Simulator) {
		s.seed = seed
		s.seeded = true
	}
}

// WithDefaultTrials overrides the sample size used when a request does not
// specify one.
func WithDefaultTrials(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.defaultTrials = n
		}
	}
}

// NewSimulator creates a simulator with sensible defaults.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		workers:       min(runtime.NumCPU(), 8),
		timeout:       5 * time.Second,
		scProb:        0.3,
		defaultTrials: DefaultTrials,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run projects finishing-position distributions for one competitor pitting
// on pitLap. The snapshot is only read. A timeout aggregates the completed
// subset instead of failing.
func (s *Simulator) Run(snapshot models.RaceSnapshot, competitorID, pitLap, trials int) (models.SimulationOutcome, error) {
	subject, ok := snapshot.Competitor(competitorID)
	if !ok {
		return models.SimulationOutcome{}, models.ErrUnknownCompetitor
	}
	remaining := snapshot.Remaining()
	if remaining <= 0 {
		return models.SimulationOutcome{}, fmt.Errorf("race complete, nothing to simulate")
	}
	if trials <= 0 {
		trials = s.defaultTrials
	}

	baseSeed := s.seed
	if !s.seeded {
		baseSeed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	positions := make([]int, trials)
	done := make([]bool, trials)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < s.workers; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < trials; i += s.workers {
				select {
				case <-ctx.Done():
					return nil // partial run, not an error
				default:
				}
				rng := rand.New(rand.NewSource(baseSeed + int64(i)))
				positions[i] = s.runTrial(rng, snapshot, subject, pitLap)
				done[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.SimulationOutcome{}, err
	}

	completed := make([]int, 0, trials)
	for i, ok := range done {
		if ok {
			completed = append(completed, positions[i])
		}
	}
	if len(completed) == 0 {
		return models.SimulationOutcome{}, fmt.Errorf("no trials completed within %s", s.timeout)
	}

	out := aggregate(completed, trials)
	out.CompetitorID = competitorID
	out.PitLap = pitLap
	return out, nil
}

// runTrial simulates one race to the flag and returns the subject's
// finishing position. The rng draw order is fixed so candidate pit laps
// share random numbers: scenario first, then the subject, then each rival.
func (s *Simulator) runTrial(rng *rand.Rand, snap models.RaceSnapshot, subject models.CompetitorSnapshot, pitLap int) int {
	remaining := snap.Remaining()

	// Safety car scenario, biased toward the early laps.
	scDraw := rng.Float64()
	scLapDraw := math.Min(rng.Float64(), rng.Float64())
	scLap := -1
	if scDraw < s.scProb {
		scLap = int(scLapDraw * float64(remaining))
	}

	pitOffset := pitLap - snap.CurrentLap

	subjectTime := s.driveRace(rng, snap, subject, remaining, pitOffset, scLap, true)

	position := 1
	for _, rival := range snap.Competitors {
		if rival.CompetitorID == subject.CompetitorID {
			continue
		}
		rivalTime := s.driveRace(rng, snap, rival, remaining, -1, scLap, false)
		if rivalTime < subjectTime {
			position++
		}
	}
	return position
}

// driveRace accumulates one car's time to the flag. plannedPit is the lap
// offset of a scheduled stop for the subject; rivals (isSubject false)
// decide their own stops.
//
// The current stint is driven on the estimator's fitted slope plus the
// post-cliff blowup the linear fit cannot see. After a stop the estimator
// knows nothing about the fresh tyre, so the stint runs on the full physics
// wear curve instead. Fuel burn and track evolution enter as deltas from
// the snapshot lap: BasePace was fitted under the current fuel load and
// track state, so only the change from here matters.
func (s *Simulator) driveRace(rng *rand.Rand, snap models.RaceSnapshot, car models.CompetitorSnapshot, remaining, plannedPit, scLap int, isSubject bool) float64 {
	// Start from the current deficit to the leader.
	total := car.GapToLeader

	// Fixed draws so the consumption pattern never depends on whether or
	// when the stop actually happens.
	pitPerturb := rng.NormFloat64() * pitExecutionStd
	rejoinDraw := rng.Float64()
	rejoinDelay := rng.Float64() * rejoinMaxDelay

	basePace := car.BasePace
	compound := car.Compound
	tyreAge := car.TyreAge
	slope := car.DegSlope
	pitted := false
	trafficLaps := 0

	for lap := 0; lap < remaining; lap++ {
		underSC := scLap >= 0 && lap == scLap

		pitThisLap := false
		next := compound
		if isSubject {
			if !pitted && plannedPit >= 0 && lap == plannedPit {
				pitThisLap = true
				next = models.CompoundHard
			}
		} else {
			d := DecideRivalStop(rng, tyreAge, car.Position, -1, compound, underSC)
			if !pitted && d.Pit {
				pitThisLap = true
				next = d.Compound
			}
		}

		if pitThisLap {
			loss := snap.PitLoss + pitPerturb
			if underSC {
				loss *= 1 - scPitDiscount
			}
			total += loss
			if rejoinDraw < rejoinTrafficProb {
				total += rejoinDelay
				trafficLaps = rejoinTrafficLaps
			}
			basePace += CompoundPaceDelta(next) - CompoundPaceDelta(compound)
			compound = next
			tyreAge = 0
			pitted = true
		}

		raceLap := snap.CurrentLap + lap + 1

		wear := slope*float64(tyreAge) + CliffPenalty(compound, tyreAge)
		if pitted {
			wear = TyrePenalty(compound, tyreAge)
		}

		lapTime := basePace + wear
		lapTime += FuelPenalty(raceLap) - FuelPenalty(snap.CurrentLap)
		lapTime -= TrackEvolution(raceLap) - TrackEvolution(snap.CurrentLap)
		if trafficLaps > 0 {
			lapTime += DirtyAirPenalty(rejoinDelay)
			trafficLaps--
		}
		if underSC {
			lapTime = basePace
		}
		total += lapTime + rng.NormFloat64()*lapNoiseStd
		tyreAge++
	}
	return total
}

// aggregate reduces trial positions into the outcome distribution.
// requested is the trial count asked for; fewer completions lower the
// reported confidence.
func aggregate(positions []int, requested int) models.SimulationOutcome {
	n := float64(len(positions))

	probs := make(map[int]float64)
	best, worst := positions[0], positions[0]
	sumPos, sumPts := 0.0, 0.0
	win, podium, inPoints := 0, 0, 0
	for _, p := range positions {
		probs[p] += 1 / n
		sumPos += float64(p)
		sumPts += pointsTable[p]
		if p < best {
			best = p
		}
		if p > worst {
			worst = p
		}
		if p == 1 {
			win++
		}
		if p <= 3 {
			podium++
		}
		if p <= 10 {
			inPoints++
		}
	}
	meanPos := sumPos / n
	meanPts := sumPts / n

	varPos, varPts := 0.0, 0.0
	for _, p := range positions {
		dp := float64(p) - meanPos
		varPos += dp * dp
		dq := pointsTable[p] - meanPts
		varPts += dq * dq
	}

	return models.SimulationOutcome{
		Trials:           len(positions),
		RequestedTrials:  requested,
		PositionProbs:    probs,
		ExpectedPosition: meanPos,
		PositionStd:      math.Sqrt(varPos / n),
		ExpectedPoints:   meanPts,
		PointsStd:        math.Sqrt(varPts / n),
		ProbWin:          float64(win) / n,
		ProbPodium:       float64(podium) / n,
		ProbPoints:       float64(inPoints) / n,
		BestCase:         best,
		WorstCase:        worst,
		Confidence:       n / float64(requested),
	}
}
