package credential

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/metrics"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// ExpirySkew treats an access token as expired this long before its expiry.
const ExpirySkew = 30 * time.Second

func parseOAuthRecord(data map[string]string) (model.OAuthCredentialRecord, error) {
	rec := model.OAuthCredentialRecord{
		AccessToken:     data[model.OAuthFieldAccessToken],
		RefreshToken:    data[model.OAuthFieldRefreshToken],
		AppClientID:     data[model.OAuthFieldClientID],
		AppClientSecret: data[model.OAuthFieldClientSecret],
	}
	if raw := data[model.OAuthFieldAccessTokenExpiry]; raw != "" {
		t, err := parseExpiry(raw)
		if err != nil {
			return rec, err
		}
		rec.AccessTokenExpiry = t
	}
	return rec, nil
}

// parseExpiry accepts RFC 3339 or unix seconds.
func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q", model.OAuthFieldAccessTokenExpiry, raw)
	}
	return time.Unix(secs, 0).UTC(), nil
}

func needsRefresh(rec model.OAuthCredentialRecord, now time.Time) bool {
	if rec.AccessToken == "" || rec.AccessTokenExpiry.IsZero() {
		return true
	}
	return !now.Add(ExpirySkew).Before(rec.AccessTokenExpiry)
}

// refreshOAuth exchanges the stored refresh token and writes the new pair back
// in one check-and-set write. The stored pair is untouched on any failure.
func (b *Broker) refreshOAuth(ctx context.Context, def model.CredentialDefinition, path string) (*Secret, error) {
	v, err, _ := b.refreshes.Do(path, func() (any, error) {
		// Another caller or instance may have refreshed since our read.
		latest, err := b.store.Get(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", gw_errors.ErrTokenRefresh, err)
		}
		rec, err := parseOAuthRecord(latest.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", gw_errors.ErrTokenRefresh, path, err)
		}
		if !needsRefresh(rec, b.now()) {
			return latest, nil
		}
		if rec.RefreshToken == "" {
			metrics.TokenRefreshes.WithLabelValues("failure").Inc()
			return nil, fmt.Errorf("%w: %s has no refresh token", gw_errors.ErrTokenRefresh, path)
		}

		cfg := oauth2.Config{
			ClientID:     rec.AppClientID,
			ClientSecret: rec.AppClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: def.OAuth.TokenURL},
			Scopes:       def.OAuth.Scopes,
		}
		exchangeCtx, cancel := context.WithTimeout(ctx, b.opts.FetchTimeout)
		defer cancel()
		if b.opts.HTTPClient != nil {
			exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, b.opts.HTTPClient)
		}
		tok, err := cfg.TokenSource(exchangeCtx, &oauth2.Token{RefreshToken: rec.RefreshToken}).Token()
		if err != nil {
			metrics.TokenRefreshes.WithLabelValues("failure").Inc()
			logger.Warn("OAuth token refresh failed",
				zap.String("credential", def.Name),
				zap.String("path", path),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %s: %v", gw_errors.ErrTokenRefresh, def.Name, err)
		}

		updated := copyValues(latest.Data)
		updated[model.OAuthFieldAccessToken] = tok.AccessToken
		expiry := tok.Expiry
		if expiry.IsZero() {
			// No expires_in: the token lives one cache lifetime.
			expiry = b.now().Add(b.opts.CacheTTL + ExpirySkew)
		}
		updated[model.OAuthFieldAccessTokenExpiry] = expiry.UTC().Format(time.RFC3339)
		if tok.RefreshToken != "" && tok.RefreshToken != rec.RefreshToken {
			updated[model.OAuthFieldRefreshToken] = tok.RefreshToken
		} else if def.OAuth.RotatesRefreshToken {
			logger.Warn("Token endpoint did not rotate refresh token",
				zap.String("credential", def.Name))
		}

		if err := b.store.Put(ctx, path, updated, latest.Version); err != nil {
			metrics.TokenRefreshes.WithLabelValues("failure").Inc()
			return nil, fmt.Errorf("%w: write-back of %s failed: %v", gw_errors.ErrTokenRefresh, path, err)
		}
		metrics.TokenRefreshes.WithLabelValues("success").Inc()
		logger.Info("OAuth token refreshed",
			zap.String("credential", def.Name),
			zap.Time("expiry", expiry))
		return &Secret{Data: updated, Version: latest.Version + 1}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Secret), nil
}

