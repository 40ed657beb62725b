package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/blang/semver/v4"
	"github.com/mbhatt/pageweight/pkg/log"
	"github.com/mbhatt/pageweight/pkg/util"
	"go.uber.org/zap"
)

const (
	versionEndpoint = "https://pageweight.fly.dev/api/v1/latest-version"
	requestTimeout  = 3 * time.Second
)

func checkForUpdate() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		versionEndpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Add("user-agent", "pageweight/"+Version)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		err := res.Body.Close()
		if err != nil {
			log.Logger.Debug("version-check: failed to close response body", zap.Error(err))
		}
	}()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %v", res.StatusCode)
	}
	js, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return parseVersionFromResponseOrFile(js)
}

type data struct {
	Errored bool   `json:"errored"`
	Version string `json:"version"`
}

func parseVersionFromResponseOrFile(js []byte) (string, error) {
	var d data
	if err := json.Unmarshal(js, &d); err != nil {
		return "", err
	}
	if d.Errored {
		return "", fmt.Errorf("no version in cache")
	}
	return d.Version, nil
}

func versionCacheFileName() (string, error) {
	const versionCacheFilename = "latest_version.json"
	cacheDir, err := util.PageweightCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, versionCacheFilename), nil
}

var errCacheMiss = fmt.Errorf("cache miss")

func loadVersionFromCache() (string, error) {
	filename, err := versionCacheFileName()
	if err != nil {
		return "", err
	}
	js, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errCacheMiss
		}
		return "", err
	}
	cacheInfo, err := os.Stat(filename)
	if err != nil {
		return "", err
	}
	lastUpdated := cacheInfo.ModTime()
	cutoff := time.Now().Add(-24 * time.Hour)
	if lastUpdated.Before(cutoff) {
		return "", errCacheMiss
	}
	return parseVersionFromResponseOrFile(js)
}

func refreshVersionCache() (string, error) {
	version, err := checkForUpdate()
	updateCacheErr := updateCache(version, err != nil)
	if updateCacheErr != nil {
		log.Logger.Debug("version-check: failed to update version cache",
			zap.Error(updateCacheErr))
	}
	return version, err
}

func updateCache(version string, errored bool) error {
	const fileMode = 0o0600
	js, err := json.Marshal(map[string]interface{}{
		"version": version,
		"errored": errored,
	})
	if err != nil {
		return err
	}
	filename, err := versionCacheFileName()
	if err != nil {
		return err
	}
	err = os.WriteFile(filename, js, fileMode)
	if err != nil {
		return fmt.Errorf("update version cache: %w", err)
	}
	return nil
}

func LoadLatestVersion() (string, error) {
	version, err := loadVersionFromCache()
	if err != nil {
		if err == errCacheMiss {
			updatedVersion, err := refreshVersionCache()
			if err != nil {
				return "", err
			}
			return updatedVersion, nil
		}
		return "", err
	}
	return version, nil
}

// UpdateAvailable reports whether a release newer than the running binary
// exists. Unparseable versions (e.g. "dev" builds) never report an update.
func UpdateAvailable() (string, bool) {
	latest, err := LoadLatestVersion()
	if err != nil {
		log.Logger.Debug("version-check: failed to load latest version",
			zap.Error(err))
		return "", false
	}
	current, err := semver.ParseTolerant(Version)
	if err != nil {
		return "", false
	}
	latestVersion, err := semver.ParseTolerant(latest)
	if err != nil {
		return "", false
	}
	if latestVersion.GT(current) {
		return latest, true
	}
	return "", false
}
