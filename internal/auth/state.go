package auth

import (
	"context"
)

// IsLoggedIn reports whether the user is considered logged in.
func IsLoggedIn(ctx context.Context) (bool, error) {
	st, err := Load()
	if err != nil {
		return false, err
	}
	return st.LoggedIn, nil
}

// SetLoggedIn marks the user as logged in by writing state to the keychain.
func SetLoggedIn(ctx context.Context, account string) error {
	return Save(State{LoggedIn: true, Account: account})
}

// SetLoggedOut clears login state.
func SetLoggedOut(ctx context.Context) error {
	return Clear()
}
