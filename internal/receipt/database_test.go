package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveRecord", func() {
		var (
			record *Record
			err    error
		)

		BeforeEach(func() {
			record = &Record{
				ID:          "test-id",
				OrgID:       "org-1",
				Status:      StatusUploaded,
				Filename:    "test.jpg",
				ContentType: "image/jpeg",
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveRecord(record)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the record to the database", func() {
				saved, getErr := db.GetRecord("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("test-id"))
				Expect(saved.OrgID).To(Equal("org-1"))
				Expect(saved.Status).To(Equal(StatusUploaded))
			})
		})
	})

	Describe("GetRecord", func() {
		When("the record exists", func() {
			BeforeEach(func() {
				Expect(db.SaveRecord(&Record{
					ID:     "test-id",
					OrgID:  "org-1",
					Status: StatusAwaitingReview,
				})).To(Succeed())
			})

			It("should return the record", func() {
				record, err := db.GetRecord("test-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Status).To(Equal(StatusAwaitingReview))
			})
		})

		When("the record does not exist", func() {
			It("should return an error", func() {
				_, err := db.GetRecord("missing")
				Expect(err).To(MatchError(ContainSubstring("record not found")))
			})
		})
	})

	Describe("ListRecords", func() {
		When("records exist for several organizations", func() {
			BeforeEach(func() {
				Expect(db.SaveRecord(&Record{ID: "a", OrgID: "org-1"})).To(Succeed())
				Expect(db.SaveRecord(&Record{ID: "b", OrgID: "org-1"})).To(Succeed())
				Expect(db.SaveRecord(&Record{ID: "c", OrgID: "org-2"})).To(Succeed())
			})

			It("should return only the requested organization's records", func() {
				records, err := db.ListRecords("org-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(2))
				for _, record := range records {
					Expect(record.OrgID).To(Equal("org-1"))
				}
			})
		})

		When("no records exist", func() {
			It("should return an empty slice, not nil", func() {
				records, err := db.ListRecords("org-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(records).NotTo(BeNil())
				Expect(records).To(BeEmpty())
			})
		})
	})

	Describe("DeleteRecord", func() {
		When("the record exists", func() {
			BeforeEach(func() {
				Expect(db.SaveRecord(&Record{ID: "test-id", OrgID: "org-1"})).To(Succeed())
			})

			It("should remove the record", func() {
				Expect(db.DeleteRecord("test-id")).To(Succeed())
				_, err := db.GetRecord("test-id")
				Expect(err).To(HaveOccurred())
			})
		})

		When("the record does not exist", func() {
			It("should not return an error", func() {
				Expect(db.DeleteRecord("missing")).To(Succeed())
			})
		})
	})

	Describe("Close", func() {
		It("should close the database", func() {
			Expect(db.Close()).To(Succeed())
			db = nil
		})
	})

	Describe("persistence across reopens", func() {
		It("should read back a record after reopening", func() {
			Expect(db.SaveRecord(&Record{ID: "test-id", OrgID: "org-1", Status: StatusVerified})).To(Succeed())
			Expect(db.Close()).To(Succeed())

			reopened, err := NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			record, err := reopened.GetRecord("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(StatusVerified))
			db = nil
		})
	})
})
