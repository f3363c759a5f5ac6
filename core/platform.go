package core

import "fmt"

// Platform is the client surface originating a request.
type Platform string

const (
	PlatformWebBrowser Platform = "web_browser"
	PlatformMobileApp  Platform = "mobile_app"
)

// Device is the physical device class of the client.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceAndroid Device = "android"
	DeviceIOS     Device = "ios"
)

// Language selects localized copy in canned responses and prompts.
type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageEnglish    Language = "en"
)

// supportedDevices maps each platform to its valid device set.
var supportedDevices = map[Platform][]Device{
	PlatformWebBrowser: {DeviceDesktop, DeviceAndroid, DeviceIOS},
	PlatformMobileApp:  {DeviceAndroid, DeviceIOS},
}

// PlatformContext carries the validated platform triple through a pipeline
// pass.
type PlatformContext struct {
	Platform Platform `json:"platform"`
	Device   Device   `json:"device"`
	Language Language `json:"language"`
}

// NewPlatformContext validates the raw platform/device/language strings and
// returns a context or a *ValidationError. The mobile_app + desktop
// combination is the canonical invalid pairing.
func NewPlatformContext(platform, device, language string) (PlatformContext, error) {
	p := Platform(platform)
	d := Device(device)
	l := Language(language)
	if l != LanguageVietnamese && l != LanguageEnglish {
		l = LanguageVietnamese
	}
	devices, ok := supportedDevices[p]
	if !ok {
		return PlatformContext{}, &ValidationError{Reason: fmt.Sprintf("unsupported platform %q", platform)}
	}
	for _, allowed := range devices {
		if d == allowed {
			return PlatformContext{Platform: p, Device: d, Language: l}, nil
		}
	}
	return PlatformContext{}, &ValidationError{
		Reason: fmt.Sprintf("invalid platform-device combination: %s with %s", platform, device),
	}
}

// IsMobile reports whether the device is a handset.
func (c PlatformContext) IsMobile() bool {
	return c.Device == DeviceAndroid || c.Device == DeviceIOS
}

// IsApp reports whether the request originated from the mobile app.
func (c PlatformContext) IsApp() bool { return c.Platform == PlatformMobileApp }
