package platform

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

// DetectActor gathers host and user information for install receipts.
func DetectActor() (*formula.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &formula.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
