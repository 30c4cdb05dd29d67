package session_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/codi-platform/orchestrator-core/session"
)

func TestNewMongoMirrorRequiresClient(t *testing.T) {
	_, err := session.NewMongoMirror(session.MongoOptions{Database: "codi"})
	require.Error(t, err)
}

func TestNewMongoMirrorRequiresDatabase(t *testing.T) {
	_, err := session.NewMongoMirror(session.MongoOptions{Client: &mongodriver.Client{}})
	require.Error(t, err)
}
