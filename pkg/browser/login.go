package browser

import (
	"context"
	"strings"
	"time"

	"igrepost/pkg/logger"
)

const loginURL = "https://www.instagram.com/accounts/login/"

// cookieBannerTexts are the consent button labels shown to fresh profiles
var cookieBannerTexts = []string{
	"Allow essential and optional cookies",
	"Allow all cookies",
	"Accept",
	"Accept All",
}

// LoginIfNeeded ensures the session is authenticated. With a persistent
// profile the cookies usually still hold and no form interaction happens.
// A challenge/verification page is logged but not treated as fatal: the
// operator resolves it manually and the loop keeps probing.
func LoginIfNeeded(ctx context.Context, s Session, username, password string, log logger.Logger) error {
	if log == nil {
		log = logger.GetLogger()
	}

	log.Info("navigating to login page")
	if err := s.Navigate(ctx, loginURL); err != nil {
		return err
	}
	time.Sleep(2 * time.Second)

	// Already logged in? The login URL redirects away in that case.
	currentURL, err := s.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(currentURL, "/accounts/login") && !strings.Contains(currentURL, "/challenge") {
		if loggedIn, _ := s.IsLoggedIn(ctx); loggedIn {
			log.Info("already logged in")
			DismissDialogs(ctx, s)
			return nil
		}
	}

	dismissCookieBanner(ctx, s)

	// Wait for the login form; if it never appears we may be logged in after all
	if err := s.WaitVisible(ctx, `input[name="email"]`, 10*time.Second); err != nil {
		if loggedIn, _ := s.IsLoggedIn(ctx); loggedIn {
			log.Info("already logged in")
			DismissDialogs(ctx, s)
			return nil
		}

		// One more attempt at reaching the form
		if err := s.Navigate(ctx, loginURL); err != nil {
			return err
		}
		dismissCookieBanner(ctx, s)
		if err := s.WaitVisible(ctx, `input[name="email"]`, 15*time.Second); err != nil {
			return err
		}
	}

	log.WithField("username", username).Info("logging in")
	if err := s.Type(ctx, `input[name="email"]`, username); err != nil {
		return err
	}
	// Trailing carriage return submits the form
	if err := s.Type(ctx, `input[name="pass"]`, password+"\r"); err != nil {
		return err
	}

	time.Sleep(8 * time.Second)
	DismissDialogs(ctx, s)

	loggedIn, err := s.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	if loggedIn {
		log.Info("login successful")
		return nil
	}

	currentURL, _ = s.CurrentURL(ctx)
	if strings.Contains(currentURL, "challenge") {
		log.WithField("url", currentURL).Warn("verification challenge detected, manual action may be needed")
	} else {
		log.Warn("login may have failed, proceeding anyway")
	}
	return nil
}

// dismissCookieBanner clicks through the consent banner if present
func dismissCookieBanner(ctx context.Context, s Session) {
	for _, text := range cookieBannerTexts {
		if err := s.ClickText(ctx, text); err == nil {
			time.Sleep(time.Second)
			return
		}
	}
}

// DismissDialogs clears the "Save login info" and "Turn on notifications"
// prompts that stack up after login. Best-effort: a missing dialog is fine.
func DismissDialogs(ctx context.Context, s Session) {
	for i := 0; i < 3; i++ {
		if err := s.ClickText(ctx, "Not Now"); err != nil {
			if err := s.ClickText(ctx, "Not now"); err != nil {
				return
			}
		}
		time.Sleep(2 * time.Second)
	}
}
