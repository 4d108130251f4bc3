package reconfig

import (
	"fmt"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// GPIOInput reads one GPIO line through the Linux GPIO character device.
type GPIOInput struct {
	chip *gpiod.Chip
	line *gpiod.Line
}

// OpenGPIO requests offset on chipName (e.g. "gpiochip0") as an input with
// the internal pull-up enabled.
func OpenGPIO(chipName string, offset int) (*GPIOInput, error) {
	chip, err := gpiod.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiod.AsInput, gpiod.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("requesting %s line %d: %w", chipName, offset, err)
	}

	return &GPIOInput{chip: chip, line: line}, nil
}

// Read returns the line level.
func (g *GPIOInput) Read() (int, error) {
	return g.line.Value()
}

// Close releases the line and the chip.
func (g *GPIOInput) Close() error {
	lineErr := g.line.Close()
	chipErr := g.chip.Close()
	if lineErr != nil {
		return lineErr
	}
	return chipErr
}
