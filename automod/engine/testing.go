package engine

import (
	"log/slog"
	"time"

	"github.com/inkipedia/wikimod/mediawiki"
)

// EngineTestFixture builds an engine over a fresh mock site, tuned so sweeps
// don't sleep their way through test runs.
func EngineTestFixture() (*Engine, *mediawiki.MockSite) {
	site := mediawiki.NewMockSite()
	eng := &Engine{
		Logger:             slog.Default(),
		Site:               site,
		BotUser:            "WikimodBot",
		BacklinkExclusions: []string{"Project:Pages pending deletion"},
		PagePause:          time.Microsecond,
	}
	return eng, site
}
