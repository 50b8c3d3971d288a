// Package actuator drives the hobby servos held at a fixed pose while the
// blink controller runs.
package actuator

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// Servos moves the actuators to their home pose. Close also homes them
// before releasing the hardware.
type Servos interface {
	Home() error
	Close() error
}

// Pose maps a PWM channel to a servo angle.
type Pose map[int]physic.Angle

// HomePose holds the eyelid servos (0, 4) at 140 degrees and the eyeball
// servos (1, 5) centred at 90 degrees.
var HomePose = Pose{
	0: 140 * physic.Degree,
	4: 140 * physic.Degree,
	1: 90 * physic.Degree,
	5: 90 * physic.Degree,
}

// PWM counts for a 0.5ms to 2.5ms pulse at 50Hz with 12-bit resolution.
const (
	minPulse gpio.Duty = 102
	maxPulse gpio.Duty = 512
)

// angleSetter is the part of *pca9685.Servo the driver uses.
type angleSetter interface {
	SetAngle(angle physic.Angle) error
}

// PCA9685 drives servos through a PCA9685 board on an I2C bus.
type PCA9685 struct {
	bus    i2c.BusCloser
	servos map[int]angleSetter
	pose   Pose
	mu     sync.Mutex
	closed bool
}

// OpenPCA9685 initialises the host drivers and opens the board on the named
// I2C bus ("" for the first available).
func OpenPCA9685(busName string) (*PCA9685, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	dev, err := pca9685.NewI2C(bus, pca9685.I2CAddr)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("open pca9685: %w", err)
	}
	if err := dev.SetPwmFreq(50 * physic.Hertz); err != nil {
		bus.Close()
		return nil, fmt.Errorf("set pwm frequency: %w", err)
	}

	group := pca9685.NewServoGroup(dev, minPulse, maxPulse, 0, 180*physic.Degree)
	servos := make(map[int]angleSetter, len(HomePose))
	for ch := range HomePose {
		servos[ch] = group.GetServo(ch)
	}

	return newPCA9685(bus, servos, HomePose), nil
}

func newPCA9685(bus i2c.BusCloser, servos map[int]angleSetter, pose Pose) *PCA9685 {
	return &PCA9685{bus: bus, servos: servos, pose: pose}
}

// Home moves every channel of the pose, in channel order. Every channel is
// attempted even if one fails.
func (p *PCA9685) Home() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("servos closed")
	}
	return p.home()
}

func (p *PCA9685) home() error {
	channels := make([]int, 0, len(p.pose))
	for ch := range p.pose {
		channels = append(channels, ch)
	}
	sort.Ints(channels)

	var errs []error
	for _, ch := range channels {
		s, ok := p.servos[ch]
		if !ok {
			errs = append(errs, fmt.Errorf("channel %d: no servo", ch))
			continue
		}
		if err := s.SetAngle(p.pose[ch]); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

// Close homes the servos and releases the bus. Later calls are no-ops.
func (p *PCA9685) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.home()
	if p.bus != nil {
		err = errors.Join(err, p.bus.Close())
	}
	return err
}

// Noop stands in when no servo hardware is configured.
type Noop struct{}

func (Noop) Home() error { return nil }
func (Noop) Close() error { return nil }
