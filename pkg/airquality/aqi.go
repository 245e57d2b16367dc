package airquality

// AQI breakpoint math for the two pollutants the district forecasts on,
// PM2.5 (ug/m3) and ozone (ppb). The overall AQI is the worse of the two.

// CalculateAQI converts the latest PM2.5 and ozone readings into an AQI
// value. A nil reading contributes zero.
func CalculateAQI(pm25, ozone *float64) int {
	var pm25AQI float64
	if pm25 != nil {
		v := *pm25
		switch {
		case v <= 12.0:
			pm25AQI = 50 * (v / 12.0)
		case v <= 35.4:
			pm25AQI = 51 + 49*((v-12.1)/(35.4-12.1))
		case v <= 55.4:
			pm25AQI = 101 + 49*((v-35.5)/(55.4-35.5))
		default:
			pm25AQI = 151 + 99*((v-55.5)/(150.4-55.5))
		}
	}

	var ozoneAQI float64
	if ozone != nil {
		v := *ozone
		switch {
		case v <= 54:
			ozoneAQI = 50 * (v / 54)
		case v <= 70:
			ozoneAQI = 51 + 49*((v-55)/(70-55))
		case v <= 85:
			ozoneAQI = 101 + 49*((v-71)/(85-71))
		default:
			ozoneAQI = 151 + 99*((v-86)/(105-86))
		}
	}

	a, b := int(pm25AQI), int(ozoneAQI)
	if a > b {
		return a
	}
	return b
}

// AQICategory returns the EPA category label for an AQI value.
func AQICategory(aqi int) string {
	switch {
	case aqi <= 50:
		return "Good"
	case aqi <= 100:
		return "Moderate"
	case aqi <= 150:
		return "Unhealthy for Sensitive Groups"
	case aqi <= 200:
		return "Unhealthy"
	case aqi <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}
