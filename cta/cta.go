// Package cta builds platform-appropriate calls-to-action. Web visitors get
// an app-store download link matched to their device; app users get a
// deeplink into the service they were just shown.
package cta

import (
	"fmt"

	"github.com/tripwise/concierge/core"
)

// App store destinations advertised to web visitors.
const (
	AndroidStoreURL    = "https://play.google.com/store/apps/details?id=ai.tripwise.app"
	IOSStoreURL        = "https://apps.apple.com/app/tripwise/id6450000000"
	GeneralDownloadURL = "https://tripwise.ai/download"
)

// ForResponse picks the CTA for a finished response: a deeplink to the top
// service for app users, a store link otherwise. Returns nil only for
// unknown platforms.
func ForResponse(pctx core.PlatformContext, services []core.Service) *core.CTA {
	if pctx.IsApp() && len(services) > 0 {
		return appCTA(pctx, services[0])
	}
	switch pctx.Platform {
	case core.PlatformWebBrowser, core.PlatformMobileApp:
		return webCTA(pctx)
	}
	return nil
}

// webCTA is the download prompt, device-matched.
func webCTA(pctx core.PlatformContext) *core.CTA {
	switch pctx.Device {
	case core.DeviceAndroid:
		return &core.CTA{
			Device: pctx.Device,
			Label:  localize(pctx.Language, "Tải app TripWise cho Android", "Download the TripWise app for Android"),
			URL:    AndroidStoreURL,
		}
	case core.DeviceIOS:
		return &core.CTA{
			Device: pctx.Device,
			Label:  localize(pctx.Language, "Tải app TripWise cho iOS", "Download the TripWise app for iOS"),
			URL:    IOSStoreURL,
		}
	default:
		return &core.CTA{
			Device: pctx.Device,
			Label:  localize(pctx.Language, "Tải app TripWise để trải nghiệm tốt hơn", "Download the TripWise app for a better experience"),
			URL:    GeneralDownloadURL,
		}
	}
}

// appCTA deep-links app users straight to the service detail screen.
func appCTA(pctx core.PlatformContext, svc core.Service) *core.CTA {
	serviceType := svc.Type
	if serviceType == "" {
		serviceType = "restaurant"
	}
	return &core.CTA{
		Device:   pctx.Device,
		Label:    localize(pctx.Language, fmt.Sprintf("Xem chi tiết %s", svc.Name), fmt.Sprintf("View %s details", svc.Name)),
		Deeplink: fmt.Sprintf("tripwise://%s/%d", serviceType, svc.ID),
	}
}

func localize(lang core.Language, vi, en string) string {
	if lang == core.LanguageEnglish {
		return en
	}
	return vi
}
