package librelink

import (
	"context"
	"testing"
	"time"

	"github.com/amansk/librelink-mcp-server/defs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gopkg.in/h2non/gock.v1"
)

const testBaseURL = "https://api-eu.libreview.io"

type LibreLinkTestSuite struct {
	suite.Suite
	client *Client
}

func TestLibreLinkTestSuite(t *testing.T) {
	suite.Run(t, new(LibreLinkTestSuite))
}

func (suite *LibreLinkTestSuite) SetupTest() {
	suite.client = New(
		defs.LibreLinkConfig{Email: "test@example.com", Password: "testPassword"},
		defs.TargetRange{Low: 70, High: 180},
		zap.New(nil),
	)
}

func (suite *LibreLinkTestSuite) AfterTest(_, _ string) {
	gock.Off()
}

func mockLogin() {
	gock.New(testBaseURL).
		Post(loginEndpoint).
		MatchType("json").
		JSON(map[string]string{
			"email":    "test@example.com",
			"password": "testPassword",
		}).
		Reply(200).
		JSON(map[string]interface{}{
			"status": 0,
			"data": map[string]interface{}{
				"authTicket": map[string]interface{}{"token": "test-token"},
				"user":       map[string]interface{}{"id": "user-1"},
			},
		})
}

func mockConnections() {
	gock.New(testBaseURL).
		Get(connectionsEndpoint).
		Reply(200).
		JSON(map[string]interface{}{
			"status": 0,
			"data": []map[string]interface{}{
				{"patientId": "patient-1"},
			},
		})
}

func mockGraph(data map[string]interface{}) {
	gock.New(testBaseURL).
		Get("/llu/connections/patient-1/graph").
		Reply(200).
		JSON(map[string]interface{}{
			"status": 0,
			"data":   data,
		})
}

func (suite *LibreLinkTestSuite) TestFetchCurrent() {
	mockLogin()
	mockConnections()
	mockGraph(map[string]interface{}{
		"connection": map[string]interface{}{
			"patientId": "patient-1",
			"glucoseMeasurement": map[string]interface{}{
				"Timestamp":      "5/8/2022 1:30:07 AM",
				"ValueInMgPerDl": 219,
				"TrendArrow":     3,
			},
		},
		"graphData": []map[string]interface{}{},
	})

	r, err := suite.client.FetchCurrent(context.Background())
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 219.0, r.Value)
	assert.Equal(suite.T(), defs.TrendFlat, r.Trend)
	assert.True(suite.T(), r.High)
	assert.False(suite.T(), r.Low)
	assert.True(suite.T(), r.Time.Equal(time.Date(2022, time.May, 8, 1, 30, 7, 0, time.Local)))
}

func (suite *LibreLinkTestSuite) TestFetchHistory() {
	now := time.Now()
	recent := now.Add(-1 * time.Hour).Format(timestampLayout)
	older := now.Add(-2 * time.Hour).Format(timestampLayout)
	stale := now.Add(-30 * time.Hour).Format(timestampLayout)

	mockLogin()
	mockConnections()
	mockGraph(map[string]interface{}{
		"connection": map[string]interface{}{"patientId": "patient-1"},
		"graphData": []map[string]interface{}{
			{"Timestamp": recent, "ValueInMgPerDl": 160, "TrendArrow": 3},
			{"Timestamp": older, "ValueInMgPerDl": 150, "TrendArrow": 4},
			{"Timestamp": recent, "ValueInMgPerDl": 160, "TrendArrow": 3}, // Duplicate.
			{"Timestamp": stale, "ValueInMgPerDl": 100, "TrendArrow": 3},
		},
	})

	trs, err := suite.client.FetchHistory(context.Background(), 12)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), trs, 2, "should drop the duplicate and the stale reading")
	assert.Equal(suite.T(), 150.0, trs[0].Value, "readings should be time-ascending")
	assert.Equal(suite.T(), 160.0, trs[1].Value)
	assert.Equal(suite.T(), defs.TrendUp45, trs[0].Trend)
}

func (suite *LibreLinkTestSuite) TestFetchHistoryEmpty() {
	mockLogin()
	mockConnections()
	mockGraph(map[string]interface{}{
		"connection": map[string]interface{}{"patientId": "patient-1"},
		"graphData":  []map[string]interface{}{},
	})

	_, err := suite.client.FetchHistory(context.Background(), 12)

	var lerr *Error
	assert.ErrorAs(suite.T(), err, &lerr)
	assert.Equal(suite.T(), CodeNoHistory, lerr.Code)
}

func (suite *LibreLinkTestSuite) TestFetchSensorInfo() {
	activated := time.Unix(1651987807, 0)

	mockLogin()
	mockConnections()
	mockGraph(map[string]interface{}{
		"connection": map[string]interface{}{
			"patientId": "patient-1",
			"sensor": map[string]interface{}{
				"deviceId": "dev-1",
				"sn":       "SN123",
				"a":        1651987807,
			},
		},
		"graphData": []map[string]interface{}{},
	})

	sensors, err := suite.client.FetchSensorInfo(context.Background())
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), sensors, 1)
	assert.Equal(suite.T(), "SN123", sensors[0].Serial)
	assert.True(suite.T(), sensors[0].Activated.Equal(activated))
	assert.True(suite.T(), sensors[0].Expires.Equal(activated.Add(sensorLifetime)))
}

func (suite *LibreLinkTestSuite) TestSessionRefresh() {
	mockLogin()
	mockConnections()

	// First graph call comes back rejected, the client should log in again
	// and retry.
	gock.New(testBaseURL).
		Get("/llu/connections/patient-1/graph").
		Reply(200).
		JSON(map[string]interface{}{"status": 401})

	mockLogin()
	mockGraph(map[string]interface{}{
		"connection": map[string]interface{}{
			"patientId": "patient-1",
			"glucoseMeasurement": map[string]interface{}{
				"Timestamp":      "5/8/2022 1:30:07 AM",
				"ValueInMgPerDl": 105,
				"TrendArrow":     3,
			},
		},
		"graphData": []map[string]interface{}{},
	})

	r, err := suite.client.FetchCurrent(context.Background())
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 105.0, r.Value)
	assert.False(suite.T(), r.High)
}

func (suite *LibreLinkTestSuite) TestValidateConnectionAuthFailed() {
	gock.New(testBaseURL).
		Post(loginEndpoint).
		Reply(200).
		JSON(map[string]interface{}{"status": 2})

	err := suite.client.ValidateConnection(context.Background())

	var lerr *Error
	assert.ErrorAs(suite.T(), err, &lerr)
	assert.Equal(suite.T(), CodeAuthFailed, lerr.Code)
}
