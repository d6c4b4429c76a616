package object

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identity is a Git author or committer line in its raw form:
// "name <email> timestamp timezone".
type Identity struct {
	Name      string
	Email     string
	Timestamp int64
	Timezone  string
}

// ParseIdentity parses a Git identity line.
func ParseIdentity(identity string) (Identity, error) {
	emailEnd := strings.LastIndex(identity, ">")
	if emailEnd == -1 {
		return Identity{}, fmt.Errorf("object: invalid identity %q", identity)
	}

	emailStart := strings.LastIndex(identity[:emailEnd], "<")
	if emailStart == -1 {
		return Identity{}, fmt.Errorf("object: invalid identity %q", identity)
	}

	name := strings.TrimSpace(identity[:emailStart])
	email := identity[emailStart+1 : emailEnd]

	timeStr := strings.TrimSpace(identity[emailEnd+1:])
	parts := strings.Fields(timeStr)
	if len(parts) != 2 {
		return Identity{}, fmt.Errorf("object: invalid identity timestamp %q", timeStr)
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("object: invalid identity timestamp: %w", err)
	}

	return Identity{
		Name:      name,
		Email:     email,
		Timestamp: timestamp,
		Timezone:  parts[1],
	}, nil
}

// String formats the identity back into Git's wire form.
func (i Identity) String() string {
	return fmt.Sprintf("%s <%s> %d %s", i.Name, i.Email, i.Timestamp, i.Timezone)
}

// Time returns the identity's timestamp in its recorded timezone.
func (i Identity) Time() (time.Time, error) {
	if len(i.Timezone) != 5 {
		return time.Time{}, fmt.Errorf("object: invalid timezone %q", i.Timezone)
	}

	sign := i.Timezone[0]
	if sign != '+' && sign != '-' {
		return time.Time{}, fmt.Errorf("object: invalid timezone sign %q", i.Timezone)
	}

	hours, err := strconv.Atoi(i.Timezone[1:3])
	if err != nil {
		return time.Time{}, fmt.Errorf("object: invalid timezone hours: %w", err)
	}

	minutes, err := strconv.Atoi(i.Timezone[3:5])
	if err != nil {
		return time.Time{}, fmt.Errorf("object: invalid timezone minutes: %w", err)
	}

	seconds := hours*3600 + minutes*60
	if sign == '-' {
		seconds = -seconds
	}

	return time.Unix(i.Timestamp, 0).In(time.FixedZone("", seconds)), nil
}
