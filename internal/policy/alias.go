package policy

import "sort"

// Alias is one of the fixed commands callers may run by name.
// The set is closed: adding a command means adding a constant here and a
// case to every switch below.
type Alias int

const (
	AliasStatusCron Alias = iota + 1
	AliasListEtc
	AliasShowCrontab
	AliasSyslogTail
)

// allAliases lists every alias in declaration order.
var allAliases = []Alias{
	AliasStatusCron,
	AliasListEtc,
	AliasShowCrontab,
	AliasSyslogTail,
}

// Aliases returns every alias in declaration order.
func Aliases() []Alias {
	out := make([]Alias, len(allAliases))
	copy(out, allAliases)
	return out
}

// Key returns the identifier callers send to select the alias.
func (a Alias) Key() string {
	switch a {
	case AliasStatusCron:
		return "status_cron"
	case AliasListEtc:
		return "list_etc"
	case AliasShowCrontab:
		return "show_crontab"
	case AliasSyslogTail:
		return "syslog_tail"
	}
	return ""
}

// Description is a short human-readable summary for listings.
func (a Alias) Description() string {
	switch a {
	case AliasStatusCron:
		return "Show the cron service status"
	case AliasListEtc:
		return "List /etc"
	case AliasShowCrontab:
		return "Print the system crontab"
	case AliasSyslogTail:
		return "Show the last 20 syslog lines"
	}
	return ""
}

// DefaultArgv is the literal argv run for the alias unless overridden.
func (a Alias) DefaultArgv() []string {
	switch a {
	case AliasStatusCron:
		return []string{"systemctl", "status", "cron"}
	case AliasListEtc:
		return []string{"ls", "-la", "/etc"}
	case AliasShowCrontab:
		return []string{"cat", "/etc/crontab"}
	case AliasSyslogTail:
		return []string{"tail", "-n", "20", "/var/log/syslog"}
	}
	return nil
}

func (a Alias) String() string {
	if k := a.Key(); k != "" {
		return k
	}
	return "unknown"
}

// ParseAlias looks up an alias by its key. Matching is exact.
func ParseAlias(key string) (Alias, bool) {
	for _, a := range allAliases {
		if a.Key() == key {
			return a, true
		}
	}
	return 0, false
}

// Keys returns all alias keys sorted alphabetically.
func Keys() []string {
	keys := make([]string, 0, len(allAliases))
	for _, a := range allAliases {
		keys = append(keys, a.Key())
	}
	sort.Strings(keys)
	return keys
}
