package receipt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/scouter-app/scouter/internal/structure"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		service     *Service
		server      *Server
		verifier    TokenVerifier
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		// Several copies so a single It can make more than one request
		ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		service = NewService(db, offlineProcessor())
		verifier = StaticToken{OrgID: "org-1"}
		server = NewServerWithMux(service, verifier, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			verifier = StaticToken{Token: "secret-token", OrgID: "org-1"}
			server = NewServerWithMux(service, verifier, http.NewServeMux())
			setupServer()
		})

		When("no token is provided", func() {
			It("should return status Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Bearer"))
				resp.Body.Close()
			})
		})

		When("the wrong token is provided", func() {
			It("should return status Unauthorized", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/receipts", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Bearer wrong")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})
		})

		When("the right token is provided", func() {
			It("should return status OK", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/receipts", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Bearer secret-token")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})

		When("the health endpoint is hit without a token", func() {
			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/health")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListRecords", func() {
		When("records exist", func() {
			BeforeEach(func() {
				Expect(db.SaveRecord(&Record{ID: "id1", OrgID: "org-1"})).To(Succeed())
				Expect(db.SaveRecord(&Record{ID: "id2", OrgID: "org-1"})).To(Succeed())
				Expect(db.SaveRecord(&Record{ID: "id3", OrgID: "org-2"})).To(Succeed())
			})

			It("should return the caller's records as JSON", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var records []*Record
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &records)).To(Succeed())
				Expect(records).To(HaveLen(2))
			})
		})

		When("no records exist", func() {
			It("should return an empty JSON array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(MatchJSON("[]"))
			})
		})
	})

	Describe("handleUploadReceipt", func() {
		multipartBody := func(field, filename string, data []byte) (*bytes.Buffer, string) {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile(field, filename)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())
			return &buf, writer.FormDataContentType()
		}

		When("a multipart file is uploaded", func() {
			It("should accept the upload and return the new record", func() {
				body, contentType := multipartBody("file", "receipt.jpg", []byte("fake image data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

				var record Record
				Expect(json.NewDecoder(resp.Body).Decode(&record)).To(Succeed())
				Expect(record.ID).NotTo(BeEmpty())
				Expect(record.OrgID).To(Equal("org-1"))
				Expect(record.Status).To(Equal(StatusUploaded))
				Expect(record.ContentType).To(Equal("image/jpeg"))

				Eventually(func() Status {
					saved, getErr := db.GetRecord(record.ID)
					if getErr != nil {
						return ""
					}
					return saved.Status
				}).Should(Equal(StatusAwaitingReview))
			})
		})

		When("a JSON body with base64 data is uploaded", func() {
			It("should accept the upload", func() {
				payload, err := json.Marshal(uploadRequest{
					ImageData:   "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("fake image data")),
					Filename:    "receipt.jpg",
					ContentType: "image/jpeg",
				})
				Expect(err).NotTo(HaveOccurred())

				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", "application/json", bytes.NewReader(payload))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			})
		})

		When("the JSON base64 data is malformed", func() {
			It("should return status Bad Request", func() {
				payload, err := json.Marshal(uploadRequest{ImageData: "not-base-64!!!"})
				Expect(err).NotTo(HaveOccurred())

				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", "application/json", bytes.NewReader(payload))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("no file is provided", func() {
			It("should return a JSON error", func() {
				body, contentType := multipartBody("other", "receipt.jpg", []byte("data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var errBody map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&errBody)).To(Succeed())
				Expect(errBody).To(HaveKey("error"))
			})
		})
	})

	Describe("handleGetRecord", func() {
		BeforeEach(func() {
			Expect(db.SaveRecord(&Record{ID: "id1", OrgID: "org-1", Status: StatusAwaitingReview})).To(Succeed())
		})

		When("the record exists", func() {
			It("should return the record", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/id1")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var record Record
				Expect(json.NewDecoder(resp.Body).Decode(&record)).To(Succeed())
				Expect(record.Status).To(Equal(StatusAwaitingReview))
			})
		})

		When("the record does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})

		When("the record belongs to another organization", func() {
			It("should return status Not Found", func() {
				Expect(db.SaveRecord(&Record{ID: "foreign", OrgID: "org-2"})).To(Succeed())

				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/foreign")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetProgress", func() {
		When("a processing run exists", func() {
			It("should return the live progress", func() {
				record, err := service.ProcessReceipt(context.Background(), "org-1", "receipt.jpg", []byte("fake image data"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())

				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/" + record.ID + "/progress")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var progress Progress
				Expect(json.NewDecoder(resp.Body).Decode(&progress)).To(Succeed())
				Expect(progress.RecordID).To(Equal(record.ID))
			})
		})

		When("no run exists for the record", func() {
			It("should return status Not Found", func() {
				Expect(db.SaveRecord(&Record{ID: "id1", OrgID: "org-1"})).To(Succeed())

				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/id1/progress")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleVerifyRecord", func() {
		BeforeEach(func() {
			Expect(db.SaveRecord(&Record{
				ID:      "id1",
				OrgID:   "org-1",
				Status:  StatusAwaitingReview,
				Receipt: &structure.ReceiptData{Merchant: structure.Merchant{Name: "Fresh Market"}},
			})).To(Succeed())
		})

		When("the record awaits review", func() {
			It("should verify it", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/id1/verify", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var record Record
				Expect(json.NewDecoder(resp.Body).Decode(&record)).To(Succeed())
				Expect(record.Status).To(Equal(StatusVerified))
			})
		})

		When("corrected data is posted", func() {
			It("should store the corrections", func() {
				payload := []byte(`{"receipt_data":{"merchant":{"name":"Fresh Market Downtown"},"items":[{"name":"Organic Bananas","price":3.99,"quantity":1}],"totals":{"total":3.99}}}`)
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/id1/verify", "application/json", bytes.NewReader(payload))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var record Record
				Expect(json.NewDecoder(resp.Body).Decode(&record)).To(Succeed())
				Expect(record.Receipt.Merchant.Name).To(Equal("Fresh Market Downtown"))
				Expect(record.Score).To(Equal(100))
			})
		})

		When("the record is still processing", func() {
			It("should return a JSON error", func() {
				Expect(db.SaveRecord(&Record{ID: "id2", OrgID: "org-1", Status: StatusOCRDone})).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/id2/verify", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var errBody map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&errBody)).To(Succeed())
				Expect(errBody["error"]).To(ContainSubstring("still processing"))
			})
		})
	})

	Describe("handleDeleteRecord", func() {
		BeforeEach(func() {
			Expect(db.SaveRecord(&Record{ID: "id1", OrgID: "org-1"})).To(Succeed())
		})

		When("the record exists", func() {
			It("should return status No Content", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/receipts/id1", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()

				_, getErr := db.GetRecord("id1")
				Expect(getErr).To(HaveOccurred())
			})
		})

		When("the record does not exist", func() {
			It("should return status Not Found", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/receipts/missing", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})
})
