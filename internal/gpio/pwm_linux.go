//go:build linux && !tinygo

package gpio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const sysfsPWMRoot = "/sys/class/pwm"

// sysfsPWM drives one exported channel of the kernel PWM class.
type sysfsPWM struct {
	chip    string
	dir     string
	ch      int
	period  time.Duration
	enabled bool
}

func openPWM(c PWMChannel) (*sysfsPWM, error) {
	chip := filepath.Join(sysfsPWMRoot, fmt.Sprintf("pwmchip%d", c.Chip))
	p := &sysfsPWM{
		chip: chip,
		dir:  filepath.Join(chip, fmt.Sprintf("pwm%d", c.Channel)),
		ch:   c.Channel,
	}

	if _, err := os.Stat(p.dir); errors.Is(err, fs.ErrNotExist) {
		if err := writeSysfs(filepath.Join(chip, "export"), strconv.Itoa(c.Channel)); err != nil {
			return nil, fmt.Errorf("export %s: %w", c, err)
		}
	}
	return p, nil
}

// setPeriod is a no-op when the period is unchanged. The duty is reset to
// zero first because the kernel rejects a period shorter than the duty.
// The channel is enabled once it has a period.
func (p *sysfsPWM) setPeriod(d time.Duration) error {
	if d == p.period {
		return nil
	}
	if err := p.setDuty(0); err != nil {
		return err
	}
	if err := writeSysfs(filepath.Join(p.dir, "period"), strconv.FormatInt(d.Nanoseconds(), 10)); err != nil {
		return err
	}
	p.period = d
	if !p.enabled {
		if err := writeSysfs(filepath.Join(p.dir, "enable"), "1"); err != nil {
			return err
		}
		p.enabled = true
	}
	return nil
}

func (p *sysfsPWM) setDuty(d time.Duration) error {
	return writeSysfs(filepath.Join(p.dir, "duty_cycle"), strconv.FormatInt(d.Nanoseconds(), 10))
}

func (p *sysfsPWM) close() error {
	if !p.enabled {
		return writeSysfs(filepath.Join(p.chip, "unexport"), strconv.Itoa(p.ch))
	}
	if err := writeSysfs(filepath.Join(p.dir, "enable"), "0"); err != nil {
		return err
	}
	return writeSysfs(filepath.Join(p.chip, "unexport"), strconv.Itoa(p.ch))
}

func writeSysfs(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}
