package post

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	Id        int64     `json:"id" bson:"id"`
	AuthorId  int64     `json:"authorId" bson:"authorId"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type PostWithOID struct {
	ID        primitive.ObjectID `bson:"_id"`
	Id        int64              `bson:"id"`
	AuthorId  int64              `bson:"authorId"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (pwo *PostWithOID) ToPost() Post {
	return Post{
		Id:        pwo.Id,
		AuthorId:  pwo.AuthorId,
		Content:   pwo.Content,
		CreatedAt: pwo.CreatedAt,
	}
}
