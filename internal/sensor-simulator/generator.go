// Package sensor_simulator produces synthetic field measurements and feeds
// them onto the intake topics, standing in for real probes during development
// and load tests.
package sensor_simulator

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/agrosense/fieldalert/internal/services/ingest"
)

// ====== Tunables ======
const (
	// Soil dries this many percentage points per hour without rain.
	drydownPerHour = 0.35
	// Random walk amplitude per reading, percentage points.
	walkJitter = 0.8
	// Chance of a rain event per reading.
	rainChance = 0.04
	rainMinMM  = 2.0
	rainMaxMM  = 18.0
	// Moisture gained per millimetre of rain.
	gainPerMM = 0.9

	// Initial moisture is drawn from [seedFloor, seedFloor+seedSpread].
	seedFloor  = 35.0
	seedSpread = 30.0

	tempBaseline   = 22.0
	tempDailySwing = 8.0
	tempNoise      = 0.6
	// Warmest time of day, hours.
	tempPeakHour = 15.0
)

// SensorSpec identifies one simulated probe.
type SensorSpec struct {
	FieldID    string
	SensorID   string
	AlertEmail string
}

func (s SensorSpec) key() string { return s.FieldID + "/" + s.SensorID }

// Topic is the intake destination for this probe's measurements.
func (s SensorSpec) Topic() string {
	return fmt.Sprintf("measurement/%s/%s", s.FieldID, s.SensorID)
}

type sensorState struct {
	moisture float64
	last     time.Time
}

// DataGenerator evolves per-sensor soil state between readings: moisture
// random-walks downward until a rain event bumps it back up, temperature
// follows a diurnal sine with noise.
type DataGenerator struct {
	clock clockwork.Clock

	mu    sync.Mutex
	rng   *rand.Rand
	state map[string]*sensorState
}

// NewDataGenerator seeds the random source; a fixed seed replays the same
// weather.
func NewDataGenerator(seed int64, clock clockwork.Clock) *DataGenerator {
	return &DataGenerator{
		clock: clock,
		rng:   rand.New(rand.NewSource(seed)),
		state: make(map[string]*sensorState),
	}
}

// Next produces the probe's next reading and advances its state.
func (g *DataGenerator) Next(spec SensorSpec) ingest.IncomingMeasurement {
	now := g.clock.Now().UTC()

	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.state[spec.key()]
	if !ok {
		st = &sensorState{moisture: seedFloor + g.rng.Float64()*seedSpread, last: now}
		g.state[spec.key()] = st
	}

	dtHours := now.Sub(st.last).Hours()
	if dtHours < 0 {
		dtHours = 0
	}

	moisture := st.moisture - drydownPerHour*dtHours + (g.rng.Float64()*2-1)*walkJitter
	var precipitation float64
	if g.rng.Float64() < rainChance {
		precipitation = rainMinMM + g.rng.Float64()*(rainMaxMM-rainMinMM)
		moisture += precipitation * gainPerMM
	}
	st.moisture = clampPercent(moisture)
	st.last = now

	temperature := diurnalTemperature(now) + (g.rng.Float64()*2-1)*tempNoise

	return ingest.IncomingMeasurement{
		FieldID:         spec.FieldID,
		SensorID:        spec.SensorID,
		SoilMoisture:    round1(st.moisture),
		AirTemperature:  round1(temperature),
		PrecipitationMM: round1(precipitation),
		CollectedAt:     now,
		CreatedBy:       "sensor-simulator",
		AlertEmail:      spec.AlertEmail,
	}
}

// diurnalTemperature follows a cosine over the day peaking mid-afternoon.
func diurnalTemperature(t time.Time) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	phase := (hour - tempPeakHour) / 24 * 2 * math.Pi
	return tempBaseline + tempDailySwing/2*math.Cos(phase)
}

func clampPercent(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
