package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/tutordesk/core"
	"github.com/trezcool/tutordesk/core/student"
)

type (
	studentDoc struct {
		ID                 primitive.ObjectID   `bson:"_id,omitempty"`
		Name               string               `bson:"name"`
		Email              string               `bson:"email"`
		Phone              string               `bson:"phone"`
		Course             string               `bson:"course"`
		Level              string               `bson:"level"`
		Status             string               `bson:"status"`
		MonthlyFee         primitive.Decimal128 `bson:"monthly_fee"`
		PaymentDay         int                  `bson:"payment_day"`
		StartDate          time.Time            `bson:"start_date"`
		SubscriptionExpiry time.Time            `bson:"subscription_expiry"`
		Progress           []progressDoc        `bson:"progress"`
		Payments           []paymentDoc         `bson:"payments"`
		Notes              string               `bson:"notes"`
		CreatedAt          time.Time            `bson:"created_at"`
		UpdatedAt          time.Time            `bson:"updated_at"`
	}

	progressDoc struct {
		Date        time.Time `bson:"date"`
		Topic       string    `bson:"topic"`
		Description string    `bson:"description"`
		Grade       float64   `bson:"grade"`
		MaxGrade    float64   `bson:"max_grade"`
		Comments    string    `bson:"comments"`
		CreatedAt   time.Time `bson:"created_at"`
	}

	paymentDoc struct {
		Date      time.Time            `bson:"date"`
		Amount    primitive.Decimal128 `bson:"amount"`
		Method    string               `bson:"method"`
		Reference string               `bson:"reference"`
		Status    string               `bson:"status"`
		Month     int                  `bson:"month"`
		Year      int                  `bson:"year"`
		Notes     string               `bson:"notes"`
		CreatedAt time.Time            `bson:"created_at"`
	}
)

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return d128
}

func fromDecimal128(d128 primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(d128.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func newProgressDoc(e student.ProgressEntry) progressDoc {
	return progressDoc{
		Date:        e.Date.Time,
		Topic:       e.Topic,
		Description: e.Description,
		Grade:       e.Grade,
		MaxGrade:    e.MaxGrade,
		Comments:    e.Comments,
		CreatedAt:   e.CreatedAt,
	}
}

func newPaymentDoc(e student.PaymentEntry) paymentDoc {
	return paymentDoc{
		Date:      e.Date.Time,
		Amount:    toDecimal128(e.Amount),
		Method:    string(e.Method),
		Reference: e.Reference,
		Status:    string(e.Status),
		Month:     e.Month,
		Year:      e.Year,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt,
	}
}

func newStudentDoc(s student.Student) studentDoc {
	doc := studentDoc{
		Name:               s.Name,
		Email:              s.Email,
		Phone:              s.Phone,
		Course:             s.Course,
		Level:              s.Level,
		Status:             string(s.Status),
		MonthlyFee:         toDecimal128(s.MonthlyFee),
		PaymentDay:         s.PaymentDay,
		StartDate:          s.StartDate.Time,
		SubscriptionExpiry: s.SubscriptionExpiry.Time,
		Progress:           make([]progressDoc, 0, len(s.Progress)),
		Payments:           make([]paymentDoc, 0, len(s.Payments)),
		Notes:              s.Notes,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	for _, e := range s.Progress {
		doc.Progress = append(doc.Progress, newProgressDoc(e))
	}
	for _, e := range s.Payments {
		doc.Payments = append(doc.Payments, newPaymentDoc(e))
	}
	return doc
}

func (doc studentDoc) toStudent() student.Student {
	s := student.Student{
		ID:                 doc.ID.Hex(),
		Name:               doc.Name,
		Email:              doc.Email,
		Phone:              doc.Phone,
		Course:             doc.Course,
		Level:              doc.Level,
		Status:             student.Status(doc.Status),
		MonthlyFee:         fromDecimal128(doc.MonthlyFee),
		PaymentDay:         doc.PaymentDay,
		StartDate:          core.NewDate(doc.StartDate),
		SubscriptionExpiry: core.NewDate(doc.SubscriptionExpiry),
		Progress:           make([]student.ProgressEntry, 0, len(doc.Progress)),
		Payments:           make([]student.PaymentEntry, 0, len(doc.Payments)),
		Notes:              doc.Notes,
		CreatedAt:          doc.CreatedAt.UTC(),
		UpdatedAt:          doc.UpdatedAt.UTC(),
	}
	for _, p := range doc.Progress {
		s.Progress = append(s.Progress, student.ProgressEntry{
			Date:        core.NewDate(p.Date),
			Topic:       p.Topic,
			Description: p.Description,
			Grade:       p.Grade,
			MaxGrade:    p.MaxGrade,
			Comments:    p.Comments,
			CreatedAt:   p.CreatedAt.UTC(),
		})
	}
	for _, p := range doc.Payments {
		s.Payments = append(s.Payments, student.PaymentEntry{
			Date:      core.NewDate(p.Date),
			Amount:    fromDecimal128(p.Amount),
			Method:    student.PaymentMethod(p.Method),
			Reference: p.Reference,
			Status:    student.PaymentStatus(p.Status),
			Month:     p.Month,
			Year:      p.Year,
			Notes:     p.Notes,
			CreatedAt: p.CreatedAt.UTC(),
		})
	}
	return s
}

type studentRepository struct {
	coll *mongo.Collection
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *mongo.Database) student.Repository {
	return &studentRepository{coll: db.Collection(studentsCollection)}
}

// insertion order
var defaultSort = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, student.ErrNotFound
	}
	return oid, nil
}

func (repo *studentRepository) find(ctx context.Context, filter bson.M) ([]student.Student, error) {
	cur, err := repo.coll.Find(ctx, filter, options.Find().SetSort(defaultSort))
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	defer func() { _ = cur.Close(ctx) }()

	students := make([]student.Student, 0)
	for cur.Next(ctx) {
		var doc studentDoc
		if err = cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding student")
		}
		students = append(students, doc.toStudent())
	}
	if err = cur.Err(); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) findOne(ctx context.Context, filter bson.M) (student.Student, error) {
	var doc studentDoc
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "fetching student")
	}
	return doc.toStudent(), nil
}

// updateOne atomically applies `update` on the student `id` and returns the updated document.
// updateOne applies `update` (an update document or a pipeline) to the student `id`.
func (repo *studentRepository) updateOne(ctx context.Context, id string, update interface{}) (student.Student, error) {
	oid, err := objectID(id)
	if err != nil {
		return student.Student{}, err
	}

	var doc studentDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err = repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return student.Student{}, student.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return doc.toStudent(), nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	doc := newStudentDoc(s)
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return doc.toStudent(), nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	return repo.find(ctx, bson.M{})
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	oid, err := objectID(id)
	if err != nil {
		return student.Student{}, err
	}
	return repo.findOne(ctx, bson.M{"_id": oid})
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	return repo.findOne(ctx, bson.M{"email": email})
}

func (repo *studentRepository) QueryStudentsByStatus(ctx context.Context, status student.Status) ([]student.Student, error) {
	return repo.find(ctx, bson.M{"status": string(status)})
}

func (repo *studentRepository) QueryExpiringStudents(ctx context.Context, status student.Status, until core.Date) ([]student.Student, error) {
	return repo.find(ctx, bson.M{
		"status":              string(status),
		"subscription_expiry": bson.M{"$lte": until.Time},
	})
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	return repo.updateOne(ctx, s.ID, bson.M{"$set": bson.M{
		"name":                s.Name,
		"email":               s.Email,
		"phone":               s.Phone,
		"course":              s.Course,
		"level":               s.Level,
		"monthly_fee":         toDecimal128(s.MonthlyFee),
		"payment_day":         s.PaymentDay,
		"start_date":          s.StartDate.Time,
		"subscription_expiry": s.SubscriptionExpiry.Time,
		"notes":               s.Notes,
		"updated_at":          s.UpdatedAt,
	}})
}

func (repo *studentRepository) UpdateStudentStatus(
	ctx context.Context,
	id string,
	status student.Status,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.updateOne(ctx, id, bson.M{"$set": bson.M{"status": string(status), "updated_at": updatedAt}})
}

func (repo *studentRepository) ToggleStudentStatus(
	ctx context.Context,
	id string,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.updateOne(ctx, id, toggleStatusPipeline(updatedAt))
}

func toggleStatusPipeline(updatedAt time.Time) mongo.Pipeline {
	active, inactive := string(student.StatusActive), string(student.StatusInactive)
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"status":     bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", active}}, inactive, active}},
			"updated_at": updatedAt,
		}}},
	}
}

func (repo *studentRepository) UpdateSubscriptionExpiry(
	ctx context.Context,
	id string,
	expiry core.Date,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.updateOne(ctx, id, bson.M{"$set": bson.M{"subscription_expiry": expiry.Time, "updated_at": updatedAt}})
}

func (repo *studentRepository) AddProgressEntry(
	ctx context.Context,
	id string,
	entry student.ProgressEntry,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.updateOne(ctx, id, bson.M{
		"$push": bson.M{"progress": newProgressDoc(entry)},
		"$set":  bson.M{"updated_at": updatedAt},
	})
}

func (repo *studentRepository) AddPaymentEntry(
	ctx context.Context,
	id string,
	entry student.PaymentEntry,
	updatedAt time.Time,
) (student.Student, error) {
	return repo.updateOne(ctx, id, bson.M{
		"$push": bson.M{"payments": newPaymentDoc(entry)},
		"$set":  bson.M{"updated_at": updatedAt},
	})
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if res.DeletedCount == 0 {
		return student.ErrNotFound
	}
	return nil
}
