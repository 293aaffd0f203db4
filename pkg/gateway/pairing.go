package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// DefaultClientID is the devicetype sent when requesting an API key.
const DefaultClientID = "deconz-migrator"

// Pair requests a new API key from the gateway at host:port. The user must
// unlock the gateway (link button or "Authenticate app" in Phoscon) first;
// a locked gateway is retried according to policy.
func Pair(ctx context.Context, host string, port int, clientID string, policy RetryPolicy, opts ...RESTOption) (string, error) {
	return NewRESTSource(host, port, opts...).Pair(ctx, clientID, policy)
}

// Pair requests a new API key from this gateway.
func (s *RESTSource) Pair(ctx context.Context, clientID string, policy RetryPolicy) (string, error) {
	if clientID == "" {
		clientID = DefaultClientID
	}

	var key string
	err := policy.Do(ctx, func(ctx context.Context) error {
		var err error
		key, err = s.requestKey(ctx, clientID)
		return err
	}, isLinkButtonError)
	if err != nil {
		return "", err
	}

	log.Info().Str("gateway", s.base).Msg("API key issued")
	return key, nil
}

func (s *RESTSource) requestKey(ctx context.Context, clientID string) (string, error) {
	payload, err := json.Marshal(map[string]string{"devicetype": clientID})
	if err != nil {
		return "", &AuthError{Err: err}
	}

	status, body, err := s.do(ctx, http.MethodPost, "/api", bytes.NewReader(payload), s.requestTimeout)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	if !gjson.ValidBytes(body) {
		return "", &AuthError{Status: status, Err: errors.New("malformed pairing response")}
	}
	if key := gjson.GetBytes(body, "0.success.username").String(); key != "" {
		return key, nil
	}
	if desc := errorDescription(body); desc != "" {
		return "", &AuthError{
			Status:      status,
			Description: desc,
			LinkButton:  strings.Contains(strings.ToLower(desc), "link button not pressed"),
		}
	}
	return "", &AuthError{Status: status, Err: errors.New("no API key in pairing response")}
}

func isLinkButtonError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.LinkButton
}
