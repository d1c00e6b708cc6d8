package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/analytics"
	"github.com/trezcool/darasa/core/certificate"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	invoicesvc "github.com/trezcool/darasa/services/invoice"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/cache"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// xenditStub mimics the invoice endpoint of the Xendit API.
type xenditStub struct {
	mu       sync.Mutex
	fail     bool
	requests []map[string]interface{}
}

func (x *xenditStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	x.requests = append(x.requests, body)

	w.Header().Set("Content-Type", "application/json")
	if x.fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"API_VALIDATION_ERROR","message":"invalid amount"}`))
		return
	}
	extID, _ := body["external_id"].(string)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":          "inv-" + extID,
		"external_id": extID,
		"status":      "PENDING",
		"invoice_url": "https://checkout.xendit.test/" + extID,
		"amount":      body["amount"],
	})
}

func (x *xenditStub) setFail(fail bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.fail = fail
}

func (x *xenditStub) lastRequest() map[string]interface{} {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.requests) == 0 {
		return nil
	}
	return x.requests[len(x.requests)-1]
}

type env struct {
	app     *echoapi.Server
	conf    *core.Config
	xendit  *xenditStub
	usrRepo user.Repository
	crsRepo course.Repository
	lrnRepo learning.Repository
	payRepo payment.Repository
}

func setup(t *testing.T) env {
	conf := testutil.NewConfig(t)

	xendit := &xenditStub{}
	srv := httptest.NewServer(xendit)
	t.Cleanup(srv.Close)
	conf.Xendit.APIURL = srv.URL
	conf.Xendit.APIKey = "xnd_development_key"

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	tx := inmemdb.NewTxRunner(db)
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	lrnRepo := inmemdb.NewLearningRepository(db)
	payRepo := inmemdb.NewPaymentRepository(db)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	emailsvc.ResetSentMessages()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	crsSvc := course.NewService(crsRepo, tx)
	lrnSvc := learning.NewService(lrnRepo, crsRepo, tx)
	certSvc := certificate.NewService(inmemdb.NewCertificateRepository(db), lrnRepo, crsRepo, usrRepo)
	paySvc := payment.NewService(payment.ServiceDeps{
		Conf:        conf,
		Logger:      logger,
		Repo:        payRepo,
		Courses:     crsRepo,
		Enrollments: lrnRepo,
		Users:       usrRepo,
		Invoices:    invoicesvc.NewXenditClient(conf, logger),
		Idempotency: cache.NewMemoryStore(),
		MailSvc:     mailSvc,
		Tx:          tx,
	})
	anlSvc := analytics.NewService(inmemdb.NewAnalyticsReadModel(db))

	// set up server
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		CourseSvc:      crsSvc,
		LearningSvc:    lrnSvc,
		CertificateSvc: certSvc,
		PaymentSvc:     paySvc,
		AnalyticsSvc:   anlSvc,
		DisableReqLogs: true,
	})

	return env{
		app:     app,
		conf:    conf,
		xendit:  xendit,
		usrRepo: usrRepo,
		crsRepo: crsRepo,
		lrnRepo: lrnRepo,
		payRepo: payRepo,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves a request and returns the recorded response.
func (e env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var data map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
	return data
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	var data []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decodeList() failed: %v; body %s", err, rec.Body.String())
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
