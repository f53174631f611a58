package postgres

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiDBClient_ReadRoundRobin(t *testing.T) {
	primary, _, err := sqlmock.New()
	require.NoError(t, err)
	defer primary.Close()
	replicaA, mockA, err := sqlmock.New()
	require.NoError(t, err)
	replicaB, mockB, err := sqlmock.New()
	require.NoError(t, err)

	client := &MultiDBClient{primary: primary}
	assert.Same(t, primary, client.Read(), "no replicas reads from primary")

	client.readReplicas = append(client.readReplicas, replicaA, replicaB)
	first := client.Read()
	second := client.Read()
	assert.NotSame(t, first, second)
	assert.Same(t, first, client.Read())
	assert.NotSame(t, primary, first)

	mockA.ExpectClose()
	mockB.ExpectClose()
	require.NoError(t, client.Close())
	assert.NoError(t, mockA.ExpectationsWereMet())
	assert.NoError(t, mockB.ExpectationsWereMet())
}

func TestClient_ReadReturnsSameHandle(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	client := NewFromDB(db)
	assert.Same(t, db, client.Read())
	assert.Same(t, db, client.DB())
}
