package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/checkout-reconciler/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/payments", TopicResourceName("p1", " payments "))
	assert.Equal(t, "projects/other/topics/x", TopicResourceName("p1", "projects/other/topics/x"))
	assert.Empty(t, TopicResourceName("", "payments"))
	assert.Empty(t, TopicResourceName("p1", ""))
}

func TestTopicNamesDeduplicates(t *testing.T) {
	names := topicNames(config.PubSubConfig{PaymentsTopic: "events", OrdersTopic: " events "})
	assert.Equal(t, []string{"events"}, names)
	assert.Empty(t, topicNames(config.PubSubConfig{}))
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("payments"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(nil))
}

func TestClientOptionsPrefersInlineCredentials(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{ProjectID: "p1"}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/creds.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds.json"}), 1)
}
