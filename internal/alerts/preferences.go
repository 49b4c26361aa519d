package alerts

import (
	"context"
	"fmt"
)

// Preferences applies the user's alert toggles, surfacing unavailable
// preferences as toasts
type Preferences struct {
	sound   *Sound
	desktop *Desktop
	toaster Toaster
}

// NewPreferences binds the toggles to their ports
func NewPreferences(sound *Sound, desktop *Desktop, toaster Toaster) *Preferences {
	return &Preferences{sound: sound, desktop: desktop, toaster: toaster}
}

// Sync enables desktop notifications when permission is already granted
func (p *Preferences) Sync() {
	if p.desktop.Permission() == PermissionGranted {
		p.desktop.SetEnabled(true)
	}
}

// SetSound turns the audio alert on or off
func (p *Preferences) SetSound(enabled bool) {
	p.sound.SetEnabled(enabled)
}

// ToggleSound flips the audio alert and returns the new state
func (p *Preferences) ToggleSound() bool {
	enabled := !p.sound.Enabled()
	p.sound.SetEnabled(enabled)
	return enabled
}

// ToggleDesktop flips desktop notifications, asking for permission first when
// it has not been decided. It returns the new state. Unsupported or blocked
// notifications yield an error matching ErrPreferenceUnavailable and leave
// the stream on toast-only delivery.
func (p *Preferences) ToggleDesktop(ctx context.Context) (bool, error) {
	if !p.desktop.IsSupported() {
		p.toaster.Toast(NewToast(ToastDestructive, "Not Supported",
			"Your platform doesn't support desktop notifications"))
		return false, ErrNotSupported
	}

	switch p.desktop.Permission() {
	case PermissionDenied:
		p.toaster.Toast(NewToast(ToastDestructive, "Notifications Blocked",
			"Please enable notifications in your system settings"))
		return false, ErrPermissionDenied

	case PermissionDefault:
		perm, err := p.desktop.RequestPermission(ctx)
		if err != nil {
			return false, fmt.Errorf("toggle desktop notifications: %w", err)
		}
		if perm != PermissionGranted {
			return false, nil
		}
		p.desktop.SetEnabled(true)
		p.toaster.Toast(NewToast(ToastDefault, "Notifications Enabled",
			"You'll receive alerts when fraud is detected"))
		return true, nil
	}

	enabled := !p.desktop.Enabled()
	p.desktop.SetEnabled(enabled)
	return enabled, nil
}
