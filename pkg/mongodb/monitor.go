package mongodb

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/event"
)

// OperationRecorder receives one observation per completed command.
type OperationRecorder interface {
	RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration)
}

// commandCollectionKeys lists the commands whose first element names a collection.
var commandCollectionKeys = map[string]bool{
	"find": true, "insert": true, "update": true, "delete": true,
	"aggregate": true, "count": true, "findAndModify": true,
	"createIndexes": true, "distinct": true,
}

// NewCommandMonitor returns a driver monitor that reports command latency and
// outcome per collection to the recorder.
func NewCommandMonitor(recorder OperationRecorder) *event.CommandMonitor {
	var inflight sync.Map // requestID -> collection

	finish := func(requestID int64, command string, success bool, duration time.Duration) {
		coll, ok := inflight.LoadAndDelete(requestID)
		if !ok {
			return
		}
		recorder.RecordMongoDBOperation(coll.(string), command, success, duration)
	}

	return &event.CommandMonitor{
		Started: func(_ context.Context, evt *event.CommandStartedEvent) {
			if !commandCollectionKeys[evt.CommandName] {
				return
			}
			coll, ok := evt.Command.Lookup(evt.CommandName).StringValueOK()
			if !ok {
				return
			}
			inflight.Store(evt.RequestID, coll)
		},
		Succeeded: func(_ context.Context, evt *event.CommandSucceededEvent) {
			finish(evt.RequestID, evt.CommandName, true, evt.Duration)
		},
		Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
			finish(evt.RequestID, evt.CommandName, false, evt.Duration)
		},
	}
}
