package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

const charset = "UTF-8"

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier emails delivery notices through Amazon SES.
type SESNotifier struct {
	client    sesAPI
	sender    string
	recipient string
	logg      *logger.Logger
}

// NewSESNotifier loads AWS config for the configured region. Static keys are used when
// present; otherwise the default credential chain applies.
func NewSESNotifier(ctx context.Context, cfg config.NotificationConfig, logg *logger.Logger) (*SESNotifier, error) {
	if strings.TrimSpace(cfg.DeliveryRecipient) == "" {
		return nil, fmt.Errorf("delivery recipient email is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESNotifier{
		client:    ses.NewFromConfig(awsCfg),
		sender:    cfg.SenderEmail,
		recipient: cfg.DeliveryRecipient,
		logg:      logg,
	}, nil
}

func (n *SESNotifier) SendOrderToDelivery(ctx context.Context, notice DeliveryNotice) error {
	subject := fmt.Sprintf("Pickup request for order %s", notice.OrderID)
	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{n.recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String(charset), Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Charset: aws.String(charset), Data: aws.String(renderHTML(notice))},
				Text: &types.Content{Charset: aws.String(charset), Data: aws.String(renderText(notice))},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send delivery email: %w", err)
	}
	if n.logg != nil {
		n.logg.Info(n.logg.WithField(ctx, "order_id", notice.OrderID.String()), "delivery notice sent")
	}
	return nil
}

func renderText(n DeliveryNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order: %s\n", n.OrderID)
	fmt.Fprintf(&b, "Pickup from: %s (%s)\n%s\n\n", n.SellerName, n.SellerMobile, n.PickupAddress)
	fmt.Fprintf(&b, "Deliver to: %s\n%s\n\n", n.CustomerName, n.ShippingAddress)
	fmt.Fprintf(&b, "Items: %d\n", n.TotalItems)
	for _, line := range n.Lines {
		fmt.Fprintf(&b, "  - %s size=%q qty=%d\n", line.ProductID, line.Size, line.Quantity)
	}
	fmt.Fprintf(&b, "Amount: %s (%s)\n", formatCents(n.AmountCents), n.PaymentMethod)
	return b.String()
}

func renderHTML(n DeliveryNotice) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h3>Order %s</h3>", html.EscapeString(n.OrderID.String()))
	fmt.Fprintf(&b, "<p><strong>Pickup:</strong> %s (%s)<br>%s</p>",
		html.EscapeString(n.SellerName), html.EscapeString(n.SellerMobile), html.EscapeString(n.PickupAddress))
	fmt.Fprintf(&b, "<p><strong>Deliver to:</strong> %s<br>%s</p>",
		html.EscapeString(n.CustomerName), html.EscapeString(n.ShippingAddress))
	b.WriteString("<ul>")
	for _, line := range n.Lines {
		fmt.Fprintf(&b, "<li>%s size %s &times; %d</li>",
			html.EscapeString(line.ProductID.String()), html.EscapeString(line.Size), line.Quantity)
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>Amount: %s (%s)</p>", formatCents(n.AmountCents), html.EscapeString(n.PaymentMethod))
	b.WriteString("</body></html>")
	return b.String()
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
