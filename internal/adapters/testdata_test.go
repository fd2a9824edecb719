package adapters

import (
	"os"
	"testing"

	"execintel/internal/event"
)

// These exercise the pytest, JUnit and Cypress adapters against
// realistic sample logs under testdata/ rather than inline fixtures.

func TestParse_PytestSampleLogFindsAssertionFailure(t *testing.T) {
	raw := readTestdata(t, "../../testdata/pytest/checkout_failure.log")

	events, framework := Parse(raw, "auto")
	if framework != "pytest" {
		t.Fatalf("expected pytest to be detected, got %s", framework)
	}

	var found bool
	for _, e := range events {
		if e.TestName == "test_guest_checkout_total" && e.Level == event.LevelError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a FAIL event for test_guest_checkout_total, got %+v", events)
	}
}

func TestParse_JUnitSampleLogFindsTimeout(t *testing.T) {
	raw := readTestdata(t, "../../testdata/junit/login_suite.xml")

	events, framework := Parse(raw, "auto")
	if framework != "junit" {
		t.Fatalf("expected junit to be detected, got %s", framework)
	}

	var found bool
	for _, e := range events {
		if e.TestName == "com.storefront.auth.LoginTest::testSsoLoginTimesOutOnSlowIdp" && e.ExceptionType == "org.openqa.selenium.TimeoutException" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a TimeoutException event for testSsoLoginTimesOutOnSlowIdp, got %+v", events)
	}
}

func TestParse_CypressSampleLogFindsAssertionFailure(t *testing.T) {
	raw := readTestdata(t, "../../testdata/cypress/cart_spec.json")

	events, framework := Parse(raw, "cypress")
	if framework != "cypress" {
		t.Fatalf("expected cypress, got %s", framework)
	}

	var found bool
	for _, e := range events {
		if e.TestName == "Cart > updates total after applying a coupon" && e.Level == event.LevelError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a FAIL event for the coupon total test, got %+v", events)
	}
}

func readTestdata(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read testdata file %s: %v", path, err)
	}
	return string(data)
}
