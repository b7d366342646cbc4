package crawler

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// runTimer counts elapsed seconds for the live readout and stops the crawl
// once the time limit, if any, is reached. It returns when done is closed.
func (c *Crawler) runTimer(done <-chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			elapsed := c.elapsed.Add(1)
			if c.timeLimit > 0 && time.Duration(elapsed)*time.Second >= c.timeLimit {
				logrus.Infof("Time limit of %v reached, stopping crawl", c.timeLimit)
				c.stop(ReasonTimeLimit)
				return
			}
		}
	}
}

// FormatElapsed renders a duration as m:ss
func FormatElapsed(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
