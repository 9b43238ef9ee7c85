package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	neturl "net/url"
	"os"
	"strings"
	"time"

	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/jlaffaye/ftp"
)

// FTPFetcher downloads ftp://[user:password@]host[:port]/path urls
type FTPFetcher struct {
	user    string
	pword   string
	timeout time.Duration
}

// NewFTPFetcher creates a fetcher with default credentials (anonymous if empty).
// Credentials of the url take precedence.
func NewFTPFetcher(user, pword string, timeout time.Duration) *FTPFetcher {
	if user == "" {
		user, pword = "anonymous", "anonymous"
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &FTPFetcher{user: user, pword: pword, timeout: timeout}
}

// Name implements Fetcher
func (f *FTPFetcher) Name() string {
	return "FTP"
}

type ftpURL struct {
	host, path  string
	user, pword string
	tls         bool
}

func (f *FTPFetcher) parse(url string) (ftpURL, error) {
	u, err := neturl.Parse(url)
	if err != nil {
		return ftpURL{}, fmt.Errorf("parse: %w", err)
	}
	if u.Scheme != "ftp" && u.Scheme != "ftps" {
		return ftpURL{}, fmt.Errorf("parse: not an ftp url: %s", url)
	}
	res := ftpURL{
		host:  u.Host,
		path:  strings.TrimPrefix(u.Path, "/"),
		user:  f.user,
		pword: f.pword,
		tls:   u.Scheme == "ftps" || u.Port() == "990",
	}
	if u.Port() == "" {
		res.host += ":21"
	}
	if u.User != nil {
		res.user = u.User.Username()
		res.pword, _ = u.User.Password()
	}
	if res.path == "" {
		return ftpURL{}, fmt.Errorf("parse: missing path: %s", url)
	}
	return res, nil
}

// Fetch implements Fetcher
func (f *FTPFetcher) Fetch(ctx context.Context, url, localFile string) (int64, error) {
	u, err := f.parse(url)
	if err != nil {
		return 0, fmt.Errorf("FTPFetcher.%w", err)
	}

	// Connection to FTP
	ftpOption := []ftp.DialOption{ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx)}
	if u.tls {
		ftpOption = append(ftpOption, ftp.DialWithTLS(&tls.Config{InsecureSkipVerify: true}))
	}
	c, err := ftp.Dial(u.host, ftpOption...)
	if err != nil {
		return 0, service.MakeTemporary(fmt.Errorf("FTPFetcher.Dial: %w", err))
	}
	defer c.Quit()

	if err = c.Login(u.user, u.pword); err != nil {
		return 0, fmt.Errorf("FTPFetcher.Login: %w", err)
	}

	// Get file size
	s, _ := c.FileSize(u.path)

	// Get file stream
	r, err := c.Retr(u.path)
	if err != nil {
		return 0, fmt.Errorf("FTPFetcher.Retr: %w", service.ErrFileNotFound{File: url})
	}
	defer r.Close()

	// Download to local file
	destFile, err := os.Create(localFile)
	if err != nil {
		return 0, fmt.Errorf("FTPFetcher.Create: %w", err)
	}
	defer destFile.Close()

	n, err := io.Copy(destFile, io.TeeReader(r, &WriteCounter{Progress: NewProgress(ctx, "FTP:"+localFile, s, 5)}))
	if err != nil {
		os.Remove(localFile)
		return 0, service.MakeTemporary(fmt.Errorf("FTPFetcher.Copy: %w", err))
	}
	return n, nil
}
