package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		FrontendBaseURL string
		SendgridApiKey  string
		RollbarToken    string
		TimeZone        string

		defaultFromEmail string
		location         *time.Location

		Server    ServerConfig
		Database  DatabaseConfig
		Lessons   LessonsConfig
		Reminders RemindersConfig
		Calendar  CalendarConfig
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		Host          string
		Port          string
		Name          string // file path for sqlite3
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	LessonsConfig struct {
		// AtomicBatches runs every multi-occurrence edit inside one transaction.
		// When false, failed writes are logged and skipped.
		AtomicBatches    bool
		NotifyOnSchedule bool
	}

	RemindersConfig struct {
		Enabled   bool
		Interval  time.Duration
		Lookahead time.Duration
	}

	CalendarConfig struct {
		ProductID string
		UIDDomain string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
}

// Location is the wall-clock location lessons are scheduled in.
func (conf *Config) Location() *time.Location {
	if conf.location == nil {
		return time.Local
	}
	return conf.location
}

func NewConfig() *Config {
	vip := viper.New()

	// defaults
	vip.SetTypeByDefaultValue(true)
	vip.SetDefault("debug", true)
	vip.SetDefault("testMode", false)
	vip.SetDefault("build", "develop")
	vip.SetDefault("appName", "Tutorly")
	vip.SetDefault("defaultFromEmail", "noreply@localhost")
	vip.SetDefault("frontendBaseURL", "http://localhost:3000")
	vip.SetDefault("timeZone", "Local")

	vip.SetDefault("serverHost", ":8000")
	vip.SetDefault("serverDebugHost", ":8001")
	vip.SetDefault("serverReadTimeout", 5*time.Second)
	vip.SetDefault("serverWriteTimeout", 10*time.Second)
	vip.SetDefault("serverShutdownTimeout", 5*time.Second)
	vip.SetDefault("serverDisableReqLogs", false)

	vip.SetDefault("databaseEngine", "postgres")
	vip.SetDefault("databaseHost", "localhost")
	vip.SetDefault("databasePort", "5432")
	vip.SetDefault("databaseName", "tutorly")
	vip.SetDefault("databaseUser", "tutorly")
	vip.SetDefault("databasePassword", "")
	vip.SetDefault("databaseAdminUser", "postgres")
	vip.SetDefault("databaseAdminPassword", "")
	vip.SetDefault("databaseDisableTLS", true)

	vip.SetDefault("lessonsAtomicBatches", true)
	vip.SetDefault("lessonsNotifyOnSchedule", true)

	vip.SetDefault("remindersEnabled", true)
	vip.SetDefault("remindersInterval", time.Minute)
	vip.SetDefault("remindersLookahead", 7*24*time.Hour)

	vip.SetDefault("calendarProductID", "-//Tutorly//Lesson Scheduler//EN")
	vip.SetDefault("calendarUIDDomain", "tutorly.local")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		vip.SetDefault("testMode", true)
	}
	vip.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	vip.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            vip.GetString("build"),
		Debug:            vip.GetBool("debug"),
		TestMode:         vip.GetBool("testMode"),
		AppName:          vip.GetString("appName"),
		FrontendBaseURL:  vip.GetString("frontendBaseURL"),
		SendgridApiKey:   vip.GetString("sendgridApiKey"),
		RollbarToken:     vip.GetString("rollbarToken"),
		TimeZone:         vip.GetString("timeZone"),
		defaultFromEmail: vip.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            vip.GetString("serverHost"),
			DebugHost:       vip.GetString("serverDebugHost"),
			ReadTimeout:     vip.GetDuration("serverReadTimeout"),
			WriteTimeout:    vip.GetDuration("serverWriteTimeout"),
			ShutdownTimeout: vip.GetDuration("serverShutdownTimeout"),
			DisableReqLogs:  vip.GetBool("serverDisableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        vip.GetString("databaseEngine"),
			Host:          vip.GetString("databaseHost"),
			Port:          vip.GetString("databasePort"),
			Name:          vip.GetString("databaseName"),
			User:          vip.GetString("databaseUser"),
			Password:      vip.GetString("databasePassword"),
			AdminUser:     vip.GetString("databaseAdminUser"),
			AdminPassword: vip.GetString("databaseAdminPassword"),
			DisableTLS:    vip.GetBool("databaseDisableTLS"),
		},
		Lessons: LessonsConfig{
			AtomicBatches:    vip.GetBool("lessonsAtomicBatches"),
			NotifyOnSchedule: vip.GetBool("lessonsNotifyOnSchedule"),
		},
		Reminders: RemindersConfig{
			Enabled:   vip.GetBool("remindersEnabled"),
			Interval:  vip.GetDuration("remindersInterval"),
			Lookahead: vip.GetDuration("remindersLookahead"),
		},
		Calendar: CalendarConfig{
			ProductID: vip.GetString("calendarProductID"),
			UIDDomain: vip.GetString("calendarUIDDomain"),
		},
	}

	loc, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		log.Fatalf("config.time.LoadLocation(%s): %v", conf.TimeZone, err)
	}
	conf.location = loc
	return conf
}

// NewTestConfig returns the configuration used by the test suites: sqlite storage, no
// rollbar, UTC wall clock.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Tutorly",
		FrontendBaseURL:  "http://localhost:3000",
		TimeZone:         "UTC",
		defaultFromEmail: "noreply@tutorly.test",
		location:         time.UTC,
		Server:           ServerConfig{DisableReqLogs: true, ShutdownTimeout: time.Second},
		Database:         DatabaseConfig{Engine: "sqlite3"},
		Lessons:          LessonsConfig{AtomicBatches: true, NotifyOnSchedule: true},
		Reminders:        RemindersConfig{Enabled: false, Interval: time.Minute, Lookahead: 7 * 24 * time.Hour},
		Calendar:         CalendarConfig{ProductID: "-//Tutorly//Lesson Scheduler//EN", UIDDomain: "tutorly.test"},
	}
}
