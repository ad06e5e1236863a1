package signaling

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Akashh18/Webrtc/internal/httpserver"
	"github.com/Akashh18/Webrtc/internal/turnrest"
)

// ICEServer mirrors the RTCIceServer dictionary clients feed to
// RTCPeerConnection.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type iceServersResponse struct {
	ICEServers []ICEServer `json:"iceServers"`
	ExpiresAt  int64       `json:"expiresAt,omitempty"`
}

// NewICEServersHandler serves the STUN/TURN configuration clients should use
// for negotiation. When a TURN vendor is configured, each response carries
// fresh time-limited credentials.
func NewICEServersHandler(stunURLs, turnURLs []string, vendor *turnrest.Vendor, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp iceServersResponse
		if len(stunURLs) > 0 {
			resp.ICEServers = append(resp.ICEServers, ICEServer{URLs: stunURLs})
		}

		if vendor != nil && len(turnURLs) > 0 {
			creds, err := vendor.Issue(uuid.NewString())
			if err != nil {
				logger.Error("failed to issue turn credentials", "err", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			resp.ICEServers = append(resp.ICEServers, ICEServer{
				URLs:       turnURLs,
				Username:   creds.Username,
				Credential: creds.Credential,
			})
			resp.ExpiresAt = creds.ExpiresAt
		}

		httpserver.WriteJSON(w, http.StatusOK, resp)
	})
}
