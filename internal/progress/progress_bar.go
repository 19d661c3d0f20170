// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
)

type Bar interface {
	Add(int) error
	Close() error
}

type ProgressBar struct {
	*progressbar.ProgressBar
}

// NewBar returns a bar counting the items of a batch.
func NewBar(total int, description string) *ProgressBar {
	return &ProgressBar{
		ProgressBar: progressbar.NewOptions(total,
			progressbar.OptionShowCount(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetWidth(20),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetDescription(description),
			progressbar.OptionOnCompletion(func() {
				fmt.Printf("\n") //nolint:forbidigo
			}),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			})),
	}
}

type noopBar struct{}

// NewNoopBar returns a bar that doesn't render anything.
func NewNoopBar() Bar {
	return noopBar{}
}

func (noopBar) Add(int) error { return nil }
func (noopBar) Close() error  { return nil }
