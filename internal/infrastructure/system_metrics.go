package infrastructure

import (
	"errors"
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RegisterSystemCollectors adds Go runtime and process collectors to reg, so
// the metrics textfile also reports goroutines, memory, GC and CPU time of
// the run.
func RegisterSystemCollectors(reg promclient.Registerer) error {
	systemCollectors := []promclient.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}

	for _, c := range systemCollectors {
		if err := reg.Register(c); err != nil {
			var already promclient.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return fmt.Errorf("failed to register system collector: %w", err)
		}
	}
	return nil
}
