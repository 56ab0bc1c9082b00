// main.go
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"playmap/common"
	"playmap/services"
)

var startedAt = time.Now()

// version is stamped by the release build; "dev" otherwise.
var version = "dev"

func main() {
	addr := common.Env("PLAYMAP_BIND", ":8080")

	// Show current log level on startup
	currentLevel := getLogLevel()
	infoLog("playmap starting with log level: %s", currentLevel)
	debugLog("Debug logging is enabled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.InitPatterns(); err != nil {
		fatalLog("patterns init failed: %v", err)
	}

	// Hot-reload the text grammar when the pattern file changes
	services.StartPatternsWatcher(ctx)

	r := makeRouter()

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !common.EnvBool("PLAYMAP_TLS_ENABLE", "false") {
		infoLog("http: listening on %s (TLS disabled)", addr)
		fatalLog("HTTP server error: %v", srv.ListenAndServe())
		return
	}

	certFile := strings.TrimSpace(common.Env("PLAYMAP_TLS_CERT_FILE", ""))
	keyFile := strings.TrimSpace(common.Env("PLAYMAP_TLS_KEY_FILE", ""))

	if certFile != "" && keyFile != "" {
		infoLog("https: listening on %s (cert=%s)", addr, certFile)
		fatalLog("HTTPS server error: %v", srv.ListenAndServeTLS(certFile, keyFile))
		return
	}

	if !common.EnvBool("PLAYMAP_TLS_SELF_SIGNED", "true") {
		fatalLog("https: TLS enabled but no cert files and self-signed disabled")
	}

	// Ephemeral self-signed (in-memory)
	certPEM, keyPEM, err := generateSelfSigned("playmap.local")
	if err != nil {
		fatalLog("Failed to generate self-signed certificate: %v", err)
	}
	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		fatalLog("Failed to load certificate key pair: %v", err)
	}
	srv.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		MinVersion:   tls.VersionTLS12,
	}
	infoLog("https: listening on %s (self-signed)", addr)
	fatalLog("HTTPS server error: %v", srv.ListenAndServeTLS("", ""))
}

// getLogLevel returns the current log level, defaulting to "info"
func getLogLevel() string {
	return strings.ToLower(common.Env("PLAYMAP_LOG_LEVEL", "info"))
}

// Package-local aliases for the common logging functions
var (
	debugLog = common.DebugLog
	infoLog  = common.InfoLog
	warnLog  = common.WarnLog
	errorLog = common.ErrorLog
	fatalLog = common.FatalLog
)

/* -------- TLS self-signed helper -------- */

func generateSelfSigned(cn string) ([]byte, []byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, err
	}

	serial, _ := rand.Int(rand.Reader, big.NewInt(1<<62))
	tpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{cn, "localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &tpl, &tpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM, nil
}
