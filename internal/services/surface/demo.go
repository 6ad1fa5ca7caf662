package surface

// DemoSamples returns eight quotes spanning strikes 90 to 110 and expiries
// 0.1 to 0.5 with a mild smile. They seed demos and tests.
func DemoSamples() []Sample {
	return []Sample{
		{Strike: 90, TimeToExpiry: 0.1, ImpliedVol: 0.25},
		{Strike: 90, TimeToExpiry: 0.5, ImpliedVol: 0.23},
		{Strike: 100, TimeToExpiry: 0.1, ImpliedVol: 0.20},
		{Strike: 100, TimeToExpiry: 0.5, ImpliedVol: 0.18},
		{Strike: 110, TimeToExpiry: 0.1, ImpliedVol: 0.22},
		{Strike: 110, TimeToExpiry: 0.5, ImpliedVol: 0.20},
		{Strike: 95, TimeToExpiry: 0.3, ImpliedVol: 0.24},
		{Strike: 105, TimeToExpiry: 0.3, ImpliedVol: 0.21},
	}
}
