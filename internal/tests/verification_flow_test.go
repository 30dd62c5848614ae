// internal/tests/verification_flow_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/firstscanit/fsi-backend/internal/config"
	"github.com/firstscanit/fsi-backend/internal/i18n"
	"github.com/firstscanit/fsi-backend/internal/router"
	"github.com/firstscanit/fsi-backend/internal/store"
)

type VerificationFlowTestSuite struct {
	suite.Suite
	router *gin.Engine
	store  *store.MemoryStore

	token       string
	batchID     string
	identifiers []string
	unitIDs     []string
}

func (suite *VerificationFlowTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	_ = i18n.Initialize("../i18n/locales")

	cfg := &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "flow-test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Issuance: config.IssuanceConfig{
			MaxUnitsPerBatch: 100,
			ExpiryYears:      3,
		},
		Verification: config.VerificationConfig{
			CloneWindowHours: 0.1,
			CloneDistance:    1.0,
			HistoryLimit:     5,
		},
		QR: config.QRConfig{
			EncryptionKeyHex: strings.Repeat("12", 32),
			IVHex:            strings.Repeat("34", 16),
			VerifyBaseURL:    "https://verify.example.com/verify",
		},
	}

	suite.store = store.NewMemoryStore()
	r, err := router.InitializeWithStore(suite.store, cfg)
	require.NoError(suite.T(), err)
	suite.router = r
}

func (suite *VerificationFlowTestSuite) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func (suite *VerificationFlowTestSuite) Test01_Health() {
	w := suite.request("GET", "/health", nil, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *VerificationFlowTestSuite) Test02_RegisterBrand() {
	w := suite.request("POST", "/v1/auth/register", map[string]interface{}{
		"name":       "Acme Pharma",
		"email":      "ops@acmepharma.example",
		"password":   "Str0ng!Passw0rd",
		"facilities": []string{"Plant 7"},
	}, "")

	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	response := decode(suite.T(), w)
	assert.True(suite.T(), response["success"].(bool))

	data := response["data"].(map[string]interface{})
	assert.NotEmpty(suite.T(), data["token"])

	// The private key must never leave the server
	assert.NotContains(suite.T(), w.Body.String(), "PRIVATE KEY")
}

func (suite *VerificationFlowTestSuite) Test03_DuplicateRegistrationRejected() {
	w := suite.request("POST", "/v1/auth/register", map[string]interface{}{
		"name":     "Acme Pharma",
		"email":    "ops@acmepharma.example",
		"password": "Str0ng!Passw0rd",
	}, "")
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *VerificationFlowTestSuite) Test04_Login() {
	w := suite.request("POST", "/v1/auth/login", map[string]interface{}{
		"email":    "ops@acmepharma.example",
		"password": "Str0ng!Passw0rd",
	}, "")

	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	data := decode(suite.T(), w)["data"].(map[string]interface{})
	suite.token = data["token"].(string)
	require.NotEmpty(suite.T(), suite.token)
}

func (suite *VerificationFlowTestSuite) Test05_IssueBatch() {
	w := suite.request("POST", "/v1/batches", map[string]interface{}{
		"product_name": "Amoxicillin 500mg",
		"quantity":     3,
		"facility":     "Plant 7",
	}, suite.token)

	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	data := decode(suite.T(), w)["data"].(map[string]interface{})
	batch := data["batch"].(map[string]interface{})

	suite.batchID = batch["batch_id"].(string)
	assert.True(suite.T(), strings.HasPrefix(suite.batchID, "BATCH-"))
	assert.Equal(suite.T(), false, batch["clamped"])

	units := batch["units"].([]interface{})
	require.Len(suite.T(), units, 3)

	for i, raw := range units {
		unit := raw.(map[string]interface{})
		unitID := unit["unit_id"].(string)
		assert.Equal(suite.T(), fmt.Sprintf("%s-UNIT-%04d", suite.batchID, i+1), unitID)
		suite.unitIDs = append(suite.unitIDs, unitID)
		suite.identifiers = append(suite.identifiers, unit["identifier"].(string))
	}
}

func (suite *VerificationFlowTestSuite) Test06_IssueRequiresAuth() {
	w := suite.request("POST", "/v1/batches", map[string]interface{}{
		"product_name": "Amoxicillin 500mg",
		"quantity":     1,
		"facility":     "Plant 7",
	}, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *VerificationFlowTestSuite) Test07_ListBatchUnits() {
	w := suite.request("GET", "/v1/batches/"+suite.batchID+"/units", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), "3", w.Header().Get("X-Total-Count"))
}

func (suite *VerificationFlowTestSuite) Test08_VerifyGenuine() {
	w := suite.request("POST", "/v1/verify", map[string]interface{}{
		"identifier": suite.identifiers[0],
	}, "")

	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	data := decode(suite.T(), w)["data"].(map[string]interface{})
	result := data["result"].(map[string]interface{})

	assert.Equal(suite.T(), "GENUINE", result["verdict"])
	assert.Equal(suite.T(), "VERIFIED", result["reason"])
	assert.Equal(suite.T(), float64(90), result["confidence"])

	product := result["product"].(map[string]interface{})
	assert.Equal(suite.T(), "Amoxicillin 500mg", product["name"])
	assert.Equal(suite.T(), "Acme Pharma", product["brand"])
}

func (suite *VerificationFlowTestSuite) Test09_VerifyUnknown() {
	w := suite.request("POST", "/v1/verify", map[string]interface{}{
		"identifier": strings.Repeat("0", 64),
	}, "")

	require.Equal(suite.T(), http.StatusOK, w.Code)
	data := decode(suite.T(), w)["data"].(map[string]interface{})
	result := data["result"].(map[string]interface{})

	assert.Equal(suite.T(), "NOT_FOUND", result["verdict"])
	assert.Equal(suite.T(), float64(0), result["confidence"])
}

func (suite *VerificationFlowTestSuite) Test10_PublicChallenges() {
	w := suite.request("GET", "/v1/verify/challenges", nil, "")
	require.Equal(suite.T(), http.StatusOK, w.Code)

	data := decode(suite.T(), w)["data"].(map[string]interface{})
	challenges := data["challenges"].([]interface{})
	require.Len(suite.T(), challenges, 4)

	// Wavelength and angle only; responses stay server-side
	assert.NotContains(suite.T(), w.Body.String(), "response")
}

func (suite *VerificationFlowTestSuite) Test11_UnitChallengesAndPUFVerify() {
	w := suite.request("GET", "/v1/units/"+suite.unitIDs[0]+"/challenges", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	data := decode(suite.T(), w)["data"].(map[string]interface{})
	responses := data["responses"].([]interface{})
	require.Len(suite.T(), responses, 4)

	verify := suite.request("POST", "/v1/verify", map[string]interface{}{
		"identifier":    suite.identifiers[0],
		"puf_responses": responses,
	}, "")
	require.Equal(suite.T(), http.StatusOK, verify.Code, verify.Body.String())

	result := decode(suite.T(), verify)["data"].(map[string]interface{})["result"].(map[string]interface{})
	assert.Equal(suite.T(), "GENUINE", result["verdict"])
	assert.Equal(suite.T(), float64(98), result["confidence"])
}

func (suite *VerificationFlowTestSuite) Test12_VerifyPUFMismatch() {
	w := suite.request("POST", "/v1/verify", map[string]interface{}{
		"identifier": suite.identifiers[1],
		"puf_responses": []map[string]interface{}{
			{"challenge_id": 1, "response": "wrong"},
		},
	}, "")

	require.Equal(suite.T(), http.StatusOK, w.Code)
	result := decode(suite.T(), w)["data"].(map[string]interface{})["result"].(map[string]interface{})
	assert.Equal(suite.T(), "TAMPERED", result["verdict"])
	assert.Equal(suite.T(), "PUF_MISMATCH", result["reason"])
}

func (suite *VerificationFlowTestSuite) Test13_ScanHistory() {
	w := suite.request("GET", "/v1/units/"+suite.unitIDs[0]+"/scans", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	data := decode(suite.T(), w)["data"].(map[string]interface{})
	scans := data["scans"].([]interface{})
	assert.NotEmpty(suite.T(), scans)
}

func (suite *VerificationFlowTestSuite) Test14_PlatformStats() {
	w := suite.request("GET", "/v1/stats/platform", nil, "")
	require.Equal(suite.T(), http.StatusOK, w.Code)

	data := decode(suite.T(), w)["data"].(map[string]interface{})
	stats := data["stats"].(map[string]interface{})

	assert.Equal(suite.T(), float64(1), stats["total_brands"])
	assert.Equal(suite.T(), float64(3), stats["total_units"])
	assert.GreaterOrEqual(suite.T(), stats["total_scans"].(float64), float64(4))
}

func (suite *VerificationFlowTestSuite) Test15_Profile() {
	w := suite.request("GET", "/v1/auth/me", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	data := decode(suite.T(), w)["data"].(map[string]interface{})
	brand := data["brand"].(map[string]interface{})
	assert.Equal(suite.T(), "Acme Pharma", brand["name"])
	assert.NotContains(suite.T(), w.Body.String(), "PRIVATE KEY")
}

func (suite *VerificationFlowTestSuite) Test16_AuthenticatedScanRecordsBrand() {
	// Auth on /verify is optional; when a brand token is presented the
	// scanner's brand id lands in the event metadata
	w := suite.request("POST", "/v1/verify", map[string]interface{}{
		"identifier": suite.identifiers[2],
	}, suite.token)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	scans, err := suite.store.ListScansForUnit(context.Background(), suite.unitIDs[2], 1)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), scans, 1)
	require.NotNil(suite.T(), scans[0].Metadata)
	assert.NotEmpty(suite.T(), scans[0].Metadata["scanner_brand_id"])
}

func TestVerificationFlowTestSuite(t *testing.T) {
	suite.Run(t, new(VerificationFlowTestSuite))
}
