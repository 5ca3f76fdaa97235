// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "perdiem-go")
	viper.SetDefault("main.log.enabled", false)
	viper.SetDefault("main.log.path", "logs/perdiem.log")
	viper.SetDefault("main.log.level", "info")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10485760)
	viper.SetDefault("main.log.rotationday", time.Sunday.String())

	viper.SetDefault("sources.dir", "data")
	viper.SetDefault("sources.submissions.path", "submissions.csv")
	viper.SetDefault("sources.submissions.encoding", EncodingCP1252)
	viper.SetDefault("sources.inspections.path", "inspections.csv")
	viper.SetDefault("sources.inspections.encoding", EncodingCP1252)
	viper.SetDefault("sources.perdiem.path", "perdiem.csv")
	viper.SetDefault("sources.perdiem.encoding", EncodingCP1252)
	viper.SetDefault("sources.transportation.path", "transportation.csv")
	viper.SetDefault("sources.transportation.encoding", EncodingCP1252)
	viper.SetDefault("sources.property.path", "property.csv")
	viper.SetDefault("sources.property.encoding", EncodingUTF8SIG)
	viper.SetDefault("sources.cache", true)

	viper.SetDefault("gsa.apikey", "")
	viper.SetDefault("gsa.apikeyfile", "")
	viper.SetDefault("gsa.baseurl", DefaultGSABaseURL)
	viper.SetDefault("gsa.year", 0)
	viper.SetDefault("gsa.timeout", 10*time.Second)
	viper.SetDefault("gsa.cachettl", 24*time.Hour)
	viper.SetDefault("gsa.ratelimit", 5.0)
	viper.SetDefault("gsa.burst", 5)
	viper.SetDefault("gsa.maxconcurrency", 4)
	viper.SetDefault("gsa.maxretries", 3)

	viper.SetDefault("policy.mileagerate", 0.70)
	viper.SetDefault("policy.freemiles", 50.0)
	viper.SetDefault("policy.inspectionceiling", 400.0)
	viper.SetDefault("policy.boundarymealratio", 0.75)
	viper.SetDefault("policy.lodging", LodgingBoth)

	viper.SetDefault("webserver.listen", ":8080")
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.urls", []string{})
	viper.SetDefault("notify.timeout", 10*time.Second)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.sentrydsn", "")
}
