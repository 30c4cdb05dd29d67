package mongo_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/codi-platform/orchestrator-core/persistence/mongo"
)

func TestNewRequiresClient(t *testing.T) {
	_, err := mongo.New(mongo.Options{Database: "codi"})
	require.Error(t, err)
}

func TestNewRequiresDatabase(t *testing.T) {
	_, err := mongo.New(mongo.Options{Client: &mongodriver.Client{}})
	require.Error(t, err)
}
