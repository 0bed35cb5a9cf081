package mongo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/robertarktes/workshop-bookings/internal/adapters/mongo"
	"github.com/robertarktes/workshop-bookings/internal/observability"
)

func TestAuditLogger(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer mongoContainer.Terminate(ctx)

	uri, err := mongoContainer.Endpoint(ctx, "mongodb")
	if err != nil {
		t.Fatal(err)
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Disconnect(ctx)

	audit := mongoadapter.NewAuditLogger(client.Database("audit_test"), observability.NewLogger("error"))
	require.NoError(t, audit.EnsureIndexes(ctx))

	bookingID := uuid.New()
	data := map[string]interface{}{"status": "pending"}
	require.NoError(t, audit.LogEvent(ctx, "booking.created:1", "booking.created", bookingID, data))
	// A redelivery of the same message is absorbed.
	require.NoError(t, audit.LogEvent(ctx, "booking.created:1", "booking.created", bookingID, data))
	require.NoError(t, audit.LogEvent(ctx, "booking.status_changed:1", "booking.status_changed", bookingID, map[string]interface{}{"status": "confirmed"}))
	require.NoError(t, audit.LogEvent(ctx, "other", "booking.created", uuid.New(), data))

	history, err := audit.History(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	statuses := map[string]interface{}{}
	for _, h := range history {
		assert.Equal(t, bookingID, h.AggregateID)
		statuses[h.Action] = h.Data["status"]
	}
	assert.Equal(t, map[string]interface{}{
		"booking.created":        "pending",
		"booking.status_changed": "confirmed",
	}, statuses)
}
