//go:build integration

package integration_test

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	kafkaImage = "confluentinc/confluent-local:7.5.0"
	minioImage = "minio/minio:RELEASE.2024-01-16T16-07-38Z"

	minioUser     = "quake-it"
	minioPassword = "quake-it-secret"
)

// startKafka runs a single-node Kafka and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	c, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("quake-etl-it"))
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err, "start kafka container")

	brokers, err := c.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startMinIO runs MinIO with bucket created and returns its host:port.
func startMinIO(ctx context.Context, t *testing.T, bucket string) string {
	t.Helper()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        minioImage,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err, "start minio container")

	endpoint, err := c.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(minioUser, minioPassword, ""),
	})
	require.NoError(t, err)
	require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	return endpoint
}
