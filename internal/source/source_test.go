package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanResult struct {
	out *dynamodb.ScanOutput
	err error
}

// fakeScan replays canned responses and records the start key of every call.
type fakeScan struct {
	results   []scanResult
	startKeys []map[string]types.AttributeValue
}

func (f *fakeScan) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.startKeys = append(f.startKeys, in.ExclusiveStartKey)
	if len(f.results) == 0 {
		return &dynamodb.ScanOutput{}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.out, r.err
}

func item(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"gameid":      &types.AttributeValueMemberS{Value: id},
		"firstPlayer": &types.AttributeValueMemberN{Value: "1"},
		"map":         &types.AttributeValueMemberS{Value: "Dunes"},
	}
}

func throttled() error {
	return &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}
}

func fastDynamo(client ScanAPI) *Dynamo {
	return NewDynamo(client, "games", WithBackoff(time.Millisecond, 5*time.Millisecond), WithAttempts(4))
}

func TestDynamoScanPagesAndSkipsKnown(t *testing.T) {
	lastKey := map[string]types.AttributeValue{"gameid": &types.AttributeValueMemberS{Value: "g2"}}
	client := &fakeScan{results: []scanResult{
		{out: &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{item("g1"), item("g2")}, LastEvaluatedKey: lastKey}},
		{err: throttled()},
		{out: &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{item("g3"), item("old")}}},
	}}

	records, err := fastDynamo(client).Scan(context.Background(), map[string]struct{}{"old": {}})
	require.NoError(t, err)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.GameID())
	}
	assert.Equal(t, []string{"g1", "g2", "g3"}, ids)
	assert.Equal(t, float64(1), records[0]["firstPlayer"])

	require.Len(t, client.startKeys, 3)
	assert.Nil(t, client.startKeys[0])
	assert.Equal(t, lastKey, client.startKeys[1])
	assert.Equal(t, lastKey, client.startKeys[2], "a retried page resumes from the same key")
}

func TestDynamoScanGivesUpAfterAttempts(t *testing.T) {
	client := &fakeScan{}
	for i := 0; i < 4; i++ {
		client.results = append(client.results, scanResult{err: throttled()})
	}

	_, err := fastDynamo(client).Scan(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, isThrottle(err))
	assert.Len(t, client.startKeys, 4)
}

func TestDynamoScanDoesNotRetryOtherErrors(t *testing.T) {
	client := &fakeScan{results: []scanResult{
		{err: &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no table"}},
	}}

	_, err := fastDynamo(client).Scan(context.Background(), nil)
	require.Error(t, err)
	assert.Len(t, client.startKeys, 1)
}

func TestDynamoScanHonoursContext(t *testing.T) {
	client := &fakeScan{results: []scanResult{{err: throttled()}, {err: throttled()}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDynamo(client, "games", WithBackoff(time.Second, time.Second))
	_, err := d.Scan(ctx, nil)
	require.Error(t, err)
}

func TestIsThrottle(t *testing.T) {
	assert.True(t, isThrottle(throttled()))
	assert.True(t, isThrottle(&smithy.GenericAPIError{Code: "ThrottlingException"}))
	assert.False(t, isThrottle(&smithy.GenericAPIError{Code: "ValidationException"}))
	assert.False(t, isThrottle(os.ErrNotExist))
}

func TestStaticSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"gameid": "a", "firstPlayer": "1"},
		{"gameid": "b", "firstPlayer": 2},
		{"firstPlayer": "1"}
	]`), 0o644))

	s, err := LoadStatic(path)
	require.NoError(t, err)
	require.Len(t, s.Records, 3)

	records, err := s.Scan(context.Background(), map[string]struct{}{"a": {}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].GameID())
	assert.Equal(t, "", records[1].GameID())
}

func TestStaticSourceSkipsNumericKnownID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"gameid": 123, "firstPlayer": "1"},
		{"gameid": 124, "firstPlayer": "1"}
	]`), 0o644))

	s, err := LoadStatic(path)
	require.NoError(t, err)
	records, err := s.Scan(context.Background(), map[string]struct{}{"123": {}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "124", records[0].GameID())
}

func TestLoadStaticErrors(t *testing.T) {
	_, err := LoadStatic(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = LoadStatic(path)
	assert.Error(t, err)
}
