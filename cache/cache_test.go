package cache

import (
	"context"
	"testing"
	"time"

	"github.com/amansk/librelink-mcp-server/defs"
	"github.com/amansk/librelink-mcp-server/librelink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type countingSource struct {
	currentCalls int
	historyCalls int
	sensorCalls  int

	reading defs.Reading
	history []defs.Reading
	err     error
}

func (cs *countingSource) FetchCurrent(_ context.Context) (defs.Reading, error) {
	cs.currentCalls++
	return cs.reading, cs.err
}

func (cs *countingSource) FetchHistory(_ context.Context, _ int) ([]defs.Reading, error) {
	cs.historyCalls++
	return cs.history, cs.err
}

func (cs *countingSource) FetchSensorInfo(_ context.Context) ([]defs.SensorInfo, error) {
	cs.sensorCalls++
	return []defs.SensorInfo{{Serial: "SN123"}}, cs.err
}

func (cs *countingSource) ValidateConnection(_ context.Context) error {
	return cs.err
}

type CacheTestSuite struct {
	suite.Suite
	upstream *countingSource
	source   *Source
	clock    time.Time
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (suite *CacheTestSuite) SetupTest() {
	suite.upstream = &countingSource{
		reading: defs.Reading{Value: 120, Trend: defs.TrendFlat},
		history: []defs.Reading{{Value: 110}, {Value: 120}},
	}
	suite.clock = time.Date(2023, time.March, 14, 12, 0, 0, 0, time.UTC)
	suite.source = Wrap(suite.upstream, time.Minute, 5*time.Minute)
	suite.source.now = func() time.Time { return suite.clock }
}

func (suite *CacheTestSuite) TestCurrentReadThrough() {
	ctx := context.Background()

	r, err := suite.source.FetchCurrent(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 120.0, r.Value)

	_, err = suite.source.FetchCurrent(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.upstream.currentCalls, "second fetch should hit the cache")

	suite.clock = suite.clock.Add(2 * time.Minute)
	_, err = suite.source.FetchCurrent(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, suite.upstream.currentCalls, "expired entry should refetch")
}

func (suite *CacheTestSuite) TestHistoryCachedPerWindow() {
	ctx := context.Background()

	_, err := suite.source.FetchHistory(ctx, 12)
	assert.NoError(suite.T(), err)
	_, err = suite.source.FetchHistory(ctx, 12)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.upstream.historyCalls)

	_, err = suite.source.FetchHistory(ctx, 6)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, suite.upstream.historyCalls, "different window should miss")
}

func (suite *CacheTestSuite) TestErrorsNotCached() {
	ctx := context.Background()
	suite.upstream.err = &librelink.Error{Code: librelink.CodeNoHistory}

	_, err := suite.source.FetchHistory(ctx, 12)
	assert.Error(suite.T(), err)
	_, err = suite.source.FetchHistory(ctx, 12)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), 2, suite.upstream.historyCalls)
}

func (suite *CacheTestSuite) TestSensorInfoCached() {
	ctx := context.Background()

	_, err := suite.source.FetchSensorInfo(ctx)
	assert.NoError(suite.T(), err)
	_, err = suite.source.FetchSensorInfo(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.upstream.sensorCalls)
}
