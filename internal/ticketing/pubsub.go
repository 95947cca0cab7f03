package ticketing

import (
	"errors"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const consumerGroup = "busbooking.tickets"

type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	closers    []func() error
}

// NewPubSub uses Redis streams when redisAddr is set and an in-process
// channel otherwise.
func NewPubSub(redisAddr string, logger watermill.LoggerAdapter) (*PubSub, error) {
	redisAddr = strings.TrimSpace(redisAddr)
	if redisAddr == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return &PubSub{Publisher: ch, Subscriber: ch, closers: []func() error{ch.Close}}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, logger)
	if err != nil {
		return nil, errors.Join(err, client.Close())
	}
	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: consumerGroup,
	}, logger)
	if err != nil {
		return nil, errors.Join(err, pub.Close(), client.Close())
	}
	return &PubSub{Publisher: pub, Subscriber: sub, closers: []func() error{sub.Close, pub.Close, client.Close}}, nil
}

func (p *PubSub) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
