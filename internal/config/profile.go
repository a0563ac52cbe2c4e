// Package config loads launch profiles: the command line used to start one
// load-generator instance.
package config

import (
	"fmt"
	"time"
)

// Defaults reproduce the JGroups UPerf invocation.
const (
	DefaultCommand      = "java"
	DefaultClasspath    = "./target/jgroups-netty-1.0-SNAPSHOT.jar:target/dependency/*"
	DefaultMainClass    = "org.jgroups.tests.perf.UPerf"
	DefaultPropsFlag    = "-props"
	DefaultNoHangUpFlag = "-nohup"
)

// Profile describes how to start one instance.
//
// Example YAML:
//
//	profiles:
//	  uperf:
//	    command: java
//	    jvmArgs: ["-Xmx512m", "-Djava.net.preferIPv4Stack=true"]
//	    classpath: "./target/jgroups-netty-1.0-SNAPSHOT.jar:target/dependency/*"
//	    mainClass: org.jgroups.tests.perf.UPerf
//	    stagger: 500ms
type Profile struct {
	// Name is the key the profile was selected by, if any.
	Name string `json:"-"`

	// Command is the executable, looked up in PATH when not absolute.
	Command string `json:"command,omitempty"`

	// JVMArgs are placed before -classpath.
	JVMArgs []string `json:"jvmArgs,omitempty"`

	// Classpath is passed with -classpath when set.
	Classpath string `json:"classpath,omitempty"`

	// MainClass is the entry point run by the JVM.
	MainClass string `json:"mainClass,omitempty"`

	// Args are placed after the main class, before the properties flag.
	Args []string `json:"args,omitempty"`

	// PropsFlag precedes the properties path.
	PropsFlag string `json:"propsFlag,omitempty"`

	// NoHangUpFlag keeps the instance from waiting for confirmation.
	NoHangUpFlag string `json:"noHangUpFlag,omitempty"`

	// WorkDir is the working directory of every instance.
	WorkDir string `json:"workDir,omitempty"`

	// Stagger is the pause between consecutive spawns.
	Stagger Duration `json:"stagger,omitempty"`
}

// DefaultProfile returns the profile used when no config file is given.
func DefaultProfile() *Profile {
	p := &Profile{Name: "default"}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults fills unset fields. The JVM classpath and main class are only
// defaulted when the command is too, so a profile naming a different binary
// does not inherit them.
func (p *Profile) ApplyDefaults() {
	if p.Command == "" {
		p.Command = DefaultCommand
		if p.Classpath == "" {
			p.Classpath = DefaultClasspath
		}
		if p.MainClass == "" {
			p.MainClass = DefaultMainClass
		}
	}
	if p.PropsFlag == "" {
		p.PropsFlag = DefaultPropsFlag
	}
	if p.NoHangUpFlag == "" {
		p.NoHangUpFlag = DefaultNoHangUpFlag
	}
}

// Argv builds the command line of one instance for the given properties path.
func (p *Profile) Argv(props string) []string {
	argv := []string{p.Command}
	argv = append(argv, p.JVMArgs...)
	if p.Classpath != "" {
		argv = append(argv, "-classpath", p.Classpath)
	}
	if p.MainClass != "" {
		argv = append(argv, p.MainClass)
	}
	argv = append(argv, p.Args...)
	return append(argv, p.PropsFlag, props, p.NoHangUpFlag)
}

// Duration is a time.Duration that unmarshals from strings like "500ms".
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
