package fingerprint

// wellKnownServices maps conventional port numbers to service names. The
// table intentionally covers only the services the prober has payloads or
// matchers for, plus the handful an operator expects to see named.
var wellKnownServices = map[int]string{
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "dns",
	80:    "http",
	110:   "pop3",
	139:   "netbios-ssn",
	143:   "imap",
	443:   "https",
	445:   "microsoft-ds",
	993:   "imaps",
	995:   "pop3s",
	1433:  "mssql",
	3306:  "mysql",
	3389:  "ms-wbt-server",
	5432:  "postgresql",
	6379:  "redis",
	27017: "mongodb",
}

// ServiceName returns the conventional service name for a port, or
// "unknown" when the port has no entry in the table.
func ServiceName(port int) string {
	if name, ok := wellKnownServices[port]; ok {
		return name
	}
	return "unknown"
}
