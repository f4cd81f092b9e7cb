// Package di provides dependency injection type definitions and wiring.
package di

import (
	"github.com/aristath/qhybrid/internal/events"
	"github.com/aristath/qhybrid/internal/modules/simulation"
	"github.com/aristath/qhybrid/internal/scheduler"
)

// Container holds every long-lived dependency of the service. It is built
// once by Wire and passed to the server.
type Container struct {
	EventBus  *events.Bus
	Core      *simulation.Core
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered maintenance jobs so they can be
// triggered manually.
type JobInstances struct {
	StatusReport     *scheduler.StatusReportJob
	HistoryRetention *scheduler.HistoryRetentionJob
}
