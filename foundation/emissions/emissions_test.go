package emissions_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecoledger/ecoledger/foundation/emissions"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Estimate(t *testing.T) {
	factor, err := emissions.Lookup("car")
	if err != nil {
		t.Fatalf("\t%s\tShould find the car kind in the catalog: %v", failed, err)
	}

	var gotAuth string
	var gotBody struct {
		EmissionFactor struct {
			ActivityID  string `json:"activity_id"`
			DataVersion string `json:"data_version"`
		} `json:"emission_factor"`
		Parameters map[string]any `json:"parameters"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/estimate" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"co2e": 4.87, "co2e_unit": "kg", "emission_factor": {"name": "Cars (by size)", "source": "BEIS", "region": "GB", "year": 2021}}`)
	}))
	defer srv.Close()

	client := emissions.New(srv.URL, "test-key", "", 0)

	t.Log("Given the need to price an activity against the calculator.")
	{
		t.Logf("\tTest 0:\tWhen estimating kind[car] over 25.5 km.")
		{
			est, err := client.Estimate(context.Background(), "car", 25.5)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to estimate the activity: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to estimate the activity.", success)

			if gotAuth != "Bearer test-key" {
				t.Errorf("\t%s\tTest 0:\tShould send the bearer token: got[%s]", failed, gotAuth)
			} else {
				t.Logf("\t%s\tTest 0:\tShould send the bearer token.", success)
			}

			if gotBody.EmissionFactor.ActivityID != factor.ActivityID {
				t.Errorf("\t%s\tTest 0:\tShould request the catalog's factor id: got[%s]", failed, gotBody.EmissionFactor.ActivityID)
			} else {
				t.Logf("\t%s\tTest 0:\tShould request the catalog's factor id.", success)
			}

			if gotBody.EmissionFactor.DataVersion != emissions.DefaultDataVersion {
				t.Errorf("\t%s\tTest 0:\tShould pin the default data version: got[%s]", failed, gotBody.EmissionFactor.DataVersion)
			} else {
				t.Logf("\t%s\tTest 0:\tShould pin the default data version.", success)
			}

			if v, ok := gotBody.Parameters["distance"].(float64); !ok || v != 25.5 {
				t.Errorf("\t%s\tTest 0:\tShould send the distance parameter: got[%v]", failed, gotBody.Parameters["distance"])
			} else {
				t.Logf("\t%s\tTest 0:\tShould send the distance parameter.", success)
			}

			if unit, _ := gotBody.Parameters["distance_unit"].(string); unit != "km" {
				t.Errorf("\t%s\tTest 0:\tShould send the distance unit km: got[%v]", failed, gotBody.Parameters["distance_unit"])
			} else {
				t.Logf("\t%s\tTest 0:\tShould send the distance unit km.", success)
			}

			if est.CO2e != 4.87 || est.CO2eUnit != "kg" {
				t.Errorf("\t%s\tTest 0:\tShould decode the estimate: got[%v %s]", failed, est.CO2e, est.CO2eUnit)
			} else {
				t.Logf("\t%s\tTest 0:\tShould decode the estimate.", success)
			}

			if est.ActivityID != factor.ActivityID {
				t.Errorf("\t%s\tTest 0:\tShould report the factor id used: got[%s]", failed, est.ActivityID)
			} else {
				t.Logf("\t%s\tTest 0:\tShould report the factor id used.", success)
			}

			if est.Factor.Source != "BEIS" || est.Factor.Year != 2021 {
				t.Errorf("\t%s\tTest 0:\tShould decode the factor detail: got[%+v]", failed, est.Factor)
			} else {
				t.Logf("\t%s\tTest 0:\tShould decode the factor detail.", success)
			}
		}
	}
}

func Test_EstimateFailures(t *testing.T) {
	var hits int
	var status int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error": "bad_request", "message": "no factor"}`)
	}))
	defer srv.Close()

	client := emissions.New(srv.URL, "test-key", "", 0)
	ctx := context.Background()

	t.Log("Given the need to report calculator failures distinctly.")
	{
		t.Logf("\tTest 0:\tWhen estimating an unknown kind.")
		{
			_, err := client.Estimate(ctx, "helicopter", 10)
			if !errors.Is(err, emissions.ErrUnknownKind) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrUnknownKind: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrUnknownKind.", success)

			if hits != 0 {
				t.Errorf("\t%s\tTest 0:\tShould not call the calculator: hits[%d]", failed, hits)
			} else {
				t.Logf("\t%s\tTest 0:\tShould not call the calculator.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen the calculator returns a server error.")
		{
			status = http.StatusInternalServerError
			_, err := client.Estimate(ctx, "car", 10)
			if !errors.Is(err, emissions.ErrUnavailable) {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrUnavailable: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get ErrUnavailable.", success)
		}

		t.Logf("\tTest 2:\tWhen the calculator rejects the request.")
		{
			status = http.StatusBadRequest
			_, err := client.Estimate(ctx, "car", 10)
			if err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould get an error for a 400 response.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould get an error for a 400 response.", success)

			if errors.Is(err, emissions.ErrUnavailable) {
				t.Errorf("\t%s\tTest 2:\tShould not report the calculator unavailable: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 2:\tShould not report the calculator unavailable.", success)
			}
		}

		t.Logf("\tTest 3:\tWhen the calculator can't be reached.")
		{
			down := emissions.New("http://127.0.0.1:0", "test-key", "", 0)
			_, err := down.Estimate(ctx, "car", 10)
			if !errors.Is(err, emissions.ErrUnavailable) {
				t.Fatalf("\t%s\tTest 3:\tShould get ErrUnavailable: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get ErrUnavailable.", success)
		}
	}
}

func Test_Search(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		gotQuery = make(map[string]string)
		for key, vals := range r.URL.Query() {
			gotQuery[key] = vals[0]
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"current_page": 1, "last_page": 4, "total_results": 32, "results": [{"id": "f-1", "name": "Grid mix", "activity_id": "electricity-energy_source_grid_mix", "region": "ID", "year": 2023, "unit_type": "Energy"}]}`)
	}))
	defer srv.Close()

	client := emissions.New(srv.URL, "test-key", "", 0)

	t.Log("Given the need to search the emission factor database.")
	{
		t.Logf("\tTest 0:\tWhen searching for electricity factors in region ID.")
		{
			page, err := client.Search(context.Background(), emissions.SearchFilter{Query: "electricity", Region: "ID"})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to search: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to search.", success)

			if gotQuery["data_version"] != emissions.DefaultDataVersion {
				t.Errorf("\t%s\tTest 0:\tShould pin the data version: got[%s]", failed, gotQuery["data_version"])
			} else {
				t.Logf("\t%s\tTest 0:\tShould pin the data version.", success)
			}

			if gotQuery["query"] != "electricity" || gotQuery["region"] != "ID" {
				t.Errorf("\t%s\tTest 0:\tShould pass the filters through: got[%v]", failed, gotQuery)
			} else {
				t.Logf("\t%s\tTest 0:\tShould pass the filters through.", success)
			}

			if _, exists := gotQuery["category"]; exists {
				t.Errorf("\t%s\tTest 0:\tShould not send empty filters.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould not send empty filters.", success)
			}

			if gotQuery["results_per_page"] != "10" {
				t.Errorf("\t%s\tTest 0:\tShould default to 10 results per page: got[%s]", failed, gotQuery["results_per_page"])
			} else {
				t.Logf("\t%s\tTest 0:\tShould default to 10 results per page.", success)
			}

			if page.TotalResults != 32 || len(page.Results) != 1 {
				t.Errorf("\t%s\tTest 0:\tShould decode the result page: got[%+v]", failed, page)
			} else {
				t.Logf("\t%s\tTest 0:\tShould decode the result page.", success)
			}

			if page.Results[0].ActivityID != "electricity-energy_source_grid_mix" {
				t.Errorf("\t%s\tTest 0:\tShould decode the factor rows: got[%s]", failed, page.Results[0].ActivityID)
			} else {
				t.Logf("\t%s\tTest 0:\tShould decode the factor rows.", success)
			}
		}
	}
}

func Test_Catalog(t *testing.T) {
	t.Log("Given the need to resolve activity kinds to calculator factors.")
	{
		t.Logf("\tTest 0:\tWhen looking up kinds case insensitively.")
		{
			lower, err := emissions.Lookup("car")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould resolve kind[car]: %v", failed, err)
			}
			upper, err := emissions.Lookup("CAR")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould resolve kind[CAR]: %v", failed, err)
			}
			if lower != upper {
				t.Errorf("\t%s\tTest 0:\tShould resolve both cases to the same factor.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould resolve both cases to the same factor.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen looking up kinds the calculator has no variant for.")
		{
			generic, err := emissions.Lookup("car")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould resolve kind[car]: %v", failed, err)
			}

			for _, kind := range []string{"car_petrol", "car_petrol_medium", "car_diesel_large"} {
				alias, err := emissions.Lookup(kind)
				if err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould resolve kind[%s]: %v", failed, kind, err)
				}
				if alias.ActivityID != generic.ActivityID {
					t.Errorf("\t%s\tTest 1:\tShould alias kind[%s] to the generic car factor.", failed, kind)
				} else {
					t.Logf("\t%s\tTest 1:\tShould alias kind[%s] to the generic car factor.", success, kind)
				}
			}
		}

		t.Logf("\tTest 2:\tWhen checking parameters and units.")
		{
			tests := []struct {
				kind  string
				param string
				unit  string
			}{
				{"bus", emissions.ParamDistance, "km"},
				{"electricity_id", emissions.ParamEnergy, "kWh"},
				{"natural_gas", emissions.ParamEnergy, "kWh"},
			}

			for _, tst := range tests {
				factor, err := emissions.Lookup(tst.kind)
				if err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould resolve kind[%s]: %v", failed, tst.kind, err)
				}
				if factor.Parameter != tst.param || factor.Unit() != tst.unit {
					t.Errorf("\t%s\tTest 2:\tShould bind kind[%s] to %s/%s: got[%s/%s]", failed, tst.kind, tst.param, tst.unit, factor.Parameter, factor.Unit())
				} else {
					t.Logf("\t%s\tTest 2:\tShould bind kind[%s] to %s/%s.", success, tst.kind, tst.param, tst.unit)
				}
			}
		}

		t.Logf("\tTest 3:\tWhen listing the kinds by category.")
		{
			groups := emissions.Kinds()

			if len(groups[emissions.CategoryTransport]) != 16 {
				t.Errorf("\t%s\tTest 3:\tShould list 16 transport kinds: got[%d]", failed, len(groups[emissions.CategoryTransport]))
			} else {
				t.Logf("\t%s\tTest 3:\tShould list 16 transport kinds.", success)
			}

			if len(groups[emissions.CategoryEnergy]) != 3 {
				t.Errorf("\t%s\tTest 3:\tShould list 3 energy kinds: got[%d]", failed, len(groups[emissions.CategoryEnergy]))
			} else {
				t.Logf("\t%s\tTest 3:\tShould list 3 energy kinds.", success)
			}

			transport := groups[emissions.CategoryTransport]
			if transport[0] != "bus" || transport[len(transport)-1] != "train" {
				t.Errorf("\t%s\tTest 3:\tShould sort each group: got first[%s] last[%s]", failed, transport[0], transport[len(transport)-1])
			} else {
				t.Logf("\t%s\tTest 3:\tShould sort each group.", success)
			}
		}

		t.Logf("\tTest 4:\tWhen checking support for unknown kinds.")
		{
			if emissions.IsSupported("helicopter") {
				t.Errorf("\t%s\tTest 4:\tShould not support kind[helicopter].", failed)
			} else {
				t.Logf("\t%s\tTest 4:\tShould not support kind[helicopter].", success)
			}
		}
	}
}
