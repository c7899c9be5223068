package app

import (
	"context"
	"edsync/internal/flow"
	"edsync/internal/types"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// HandleSQSEvent runs one fetch command per SQS message; each body is a JSON flow.Command.
// It returns only after the resulting events were handed to every subscriber, since the
// Lambda environment may be frozen as soon as it returns.
func (a *App) HandleSQSEvent(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	log.Infof("Processing batch of %d messages", len(sqsEvent.Records))

	var batchItemFailures []events.SQSBatchItemFailure

	for _, record := range sqsEvent.Records {
		if err := a.processMessage(ctx, record); err != nil {
			log.WithError(err).Errorf("Failed to process message %s", record.MessageId)
			// For FIFO queues, report failure to preserve ordering
			batchItemFailures = append(batchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}

	if err := a.Flush(ctx); err != nil {
		return events.SQSEventResponse{}, fmt.Errorf("flush change events: %w", err)
	}
	return events.SQSEventResponse{
		BatchItemFailures: batchItemFailures,
	}, nil
}

// processMessage runs a single command synchronously so the invocation does not end mid-fetch.
func (a *App) processMessage(ctx context.Context, record events.SQSMessage) error {
	var cmd flow.Command
	if err := json.Unmarshal([]byte(record.Body), &cmd); err != nil {
		return fmt.Errorf("parse message body: %w", err)
	}
	if cmd.Kind == 0 {
		cmd.Kind = types.FetchEditorSettings
	}

	log.WithFields(log.Fields{
		"kind":      cmd.Kind.String(),
		"siteID":    cmd.SiteID,
		"messageID": record.MessageId,
		"groupID":   record.Attributes["MessageGroupId"],
	}).Debug("Processing message")

	if err := a.Dispatcher.Dispatch(ctx, cmd); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}
