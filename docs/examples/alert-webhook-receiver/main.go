// Assetwatch Alert Webhook Receiver Example
//
// A minimal receiver that verifies and logs assetwatch alert webhooks.
//
// Usage:
//   export ALERT_WEBHOOK_SECRET="the same value the API runs with"
//   go run main.go
//
// Then start the API with ALERT_WEBHOOK_URL pointing at
// http://your-server:9000/alerts (set ALERT_WEBHOOK_ALLOW_PRIVATE=true for
// a plain-HTTP or private address).

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"
)

// AlertEvent is the webhook body.
type AlertEvent struct {
	Event  string    `json:"event"` // "opened" or "resolved"
	SentAt time.Time `json:"sent_at"`
	Alert  Alert     `json:"alert"`
}

// Alert carries the fields a receiver usually needs.
type Alert struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Severity  string   `json:"severity"`
	Message   string   `json:"message"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
	Resolved  bool     `json:"resolved"`
	Samples   []Sample `json:"supporting_metrics"`
}

// Sample is one metric that contributed to the alert.
type Sample struct {
	Path       string  `json:"path"`
	LoadTimeMs float64 `json:"load_time_ms"`
	Success    bool    `json:"success"`
}

func main() {
	secret := os.Getenv("ALERT_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("ALERT_WEBHOOK_SECRET environment variable is required")
	}

	http.HandleFunc("/alerts", alertHandler(secret))
	http.HandleFunc("/health", healthHandler)

	log.Println("Starting alert receiver on :9000")
	log.Println("Endpoint: http://localhost:9000/alerts")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func alertHandler(secret string) http.HandlerFunc {
	seen := make(map[string]bool)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Printf("Error reading body: %v", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		signature := r.Header.Get("X-Assetwatch-Signature")
		timestamp := r.Header.Get("X-Assetwatch-Timestamp")
		if signature == "" || timestamp == "" {
			log.Println("Missing signature headers")
			http.Error(w, "Missing signature", http.StatusUnauthorized)
			return
		}

		if !verifySignature(signature, timestamp, body, secret) {
			log.Println("Invalid signature")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		// Retries reuse the delivery id
		deliveryID := r.Header.Get("X-Assetwatch-Delivery-Id")
		if seen[deliveryID] {
			w.WriteHeader(http.StatusOK)
			return
		}
		seen[deliveryID] = true

		var event AlertEvent
		if err := json.Unmarshal(body, &event); err != nil {
			log.Printf("Error parsing JSON: %v", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		log.Printf("Alert %s: %s", event.Event, event.Alert.ID)
		log.Printf("  Type:     %s (%s)", event.Alert.Type, event.Alert.Severity)
		log.Printf("  Message:  %s", event.Alert.Message)
		log.Printf("  Value:    %.2f (threshold %.2f)", event.Alert.Value, event.Alert.Threshold)
		for _, sample := range event.Alert.Samples {
			log.Printf("  Sample:   %s %.0fms success=%v", sample.Path, sample.LoadTimeMs, sample.Success)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "received"})
	}
}

// verifySignature recomputes the HMAC-SHA256 of "{timestamp}.{body}" the same
// way the service signs it (internal/webhook GenerateSignature) and rejects
// timestamps more than five minutes off.
func verifySignature(signature, timestamp string, body []byte, secret string) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if math.Abs(float64(time.Now().Unix()-ts)) > 300 {
		log.Println("Signature timestamp too old or in future")
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(body)))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
