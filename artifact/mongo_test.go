package artifact_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/codi-platform/orchestrator-core/artifact"
)

func TestNewMongoMetadataPortRequiresClient(t *testing.T) {
	_, err := artifact.NewMongoMetadataPort(artifact.MongoOptions{Database: "codi"})
	require.Error(t, err)
}

func TestNewMongoMetadataPortRequiresDatabase(t *testing.T) {
	_, err := artifact.NewMongoMetadataPort(artifact.MongoOptions{Client: &mongodriver.Client{}})
	require.Error(t, err)
}
