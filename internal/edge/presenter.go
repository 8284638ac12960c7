package edge

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/service"
	"github.com/chidhvilasa/access-control-backend/internal/access/token"
)

// Presenter is the local listener a reader device posts presented tokens
// to. It stands in for the NFC channel: token in, grant/deny out, entirely
// from local state. It never waits on the network.
type Presenter struct {
	logger   *log.Logger
	keys     *KeyCache
	verifier *token.Verifier
	reporter *Reporter
	now      func() time.Time
}

func NewPresenter(logger *log.Logger, keys *KeyCache, verifier *token.Verifier, reporter *Reporter) *Presenter {
	return &Presenter{
		logger:   logger,
		keys:     keys,
		verifier: verifier,
		reporter: reporter,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type presentRequest struct {
	Token string `json:"token"`
}

type presentResponse struct {
	Granted bool   `json:"granted"`
	Outcome string `json:"outcome"`
}

func (p *Presenter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /present", p.handlePresent)
	mux.HandleFunc("GET /healthz", p.handleHealthz)
	return mux
}

func (p *Presenter) handlePresent(w http.ResponseWriter, r *http.Request) {
	var req presentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respond(w, presentResponse{Granted: false, Outcome: string(token.OutcomeMalformed)})
		return
	}

	res := p.verify(req.Token)
	respond(w, presentResponse{Granted: res.Outcome.Granted(), Outcome: string(res.Outcome)})

	if res.Payload != nil {
		p.report(res)
	}
	p.logger.Printf("present outcome=%s", res.Outcome)
}

// verify picks the community key out of the presented payload, then runs
// the full gate sequence. A community the cache has no key for verifies as
// bad_signature: the unit cannot authenticate the token, so it cannot trust
// a single byte of it.
func (p *Presenter) verify(transport string) token.Result {
	payloadBytes, _, err := token.FromTransport(transport)
	if err != nil {
		return token.Result{Outcome: token.OutcomeMalformed}
	}
	payload, err := token.Decode(payloadBytes)
	if err != nil {
		return token.Result{Outcome: token.OutcomeMalformed}
	}

	pub, ok := p.keys.LookupPublicKey(payload.CommunityID)
	if !ok {
		return token.Result{Outcome: token.OutcomeBadSignature}
	}
	return p.verifier.Verify(transport, pub, p.now())
}

func (p *Presenter) report(res token.Result) {
	if p.reporter == nil {
		return
	}
	pl := res.Payload
	p.reporter.Enqueue(service.ReportedEvent{
		UserID:      pl.UserID,
		DeviceID:    pl.DeviceID,
		CommunityID: pl.CommunityID,
		Type:        pl.Type,
		Timestamp:   p.now(),
		Verified:    res.Outcome.Granted(),
		Nonce:       pl.Nonce,
	})
}

func (p *Presenter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	pending := 0
	if p.reporter != nil {
		pending = p.reporter.Pending()
	}
	respond(w, map[string]any{
		"ok":        true,
		"synced_at": p.keys.SyncedAt(),
		"pending":   pending,
	})
}

func respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
