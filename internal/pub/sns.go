package pub

import (
	"context"
	"edsync/internal/ports"
	"edsync/internal/types"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

type snsPub struct{ cli *sns.Client }

func NewSNS(c *sns.Client) *snsPub { return &snsPub{cli: c} }

func (s *snsPub) PublishRaw(ctx context.Context, arn string, payload []byte) error {
	_, err := s.cli.Publish(ctx, &sns.PublishInput{
		TopicArn: &arn,
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"content-type": {DataType: aws.String("String"), StringValue: aws.String("application/json")},
		},
	})
	return err
}

// Forwarder relays change events to a topic. Subscribe Handle on the event bus.
type Forwarder struct {
	pub ports.RawPublisher
	arn string
}

func NewForwarder(pub ports.RawPublisher, arn string) *Forwarder {
	return &Forwarder{pub: pub, arn: arn}
}

// Handle encodes evt and publishes it. Failures are logged; the bus has no one to return them to.
func (f *Forwarder) Handle(ctx context.Context, evt types.ChangeEvent) {
	b, err := json.Marshal(evt)
	if err != nil {
		log.WithError(err).WithField("eventID", evt.ID).Error("marshal change event")
		return
	}
	if err := f.pub.PublishRaw(ctx, f.arn, b); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"eventID": evt.ID,
			"siteID":  strconv.FormatInt(evt.SiteID, 10),
			"snsArn":  f.arn,
		}).Error("forward change event to SNS")
	}
}
